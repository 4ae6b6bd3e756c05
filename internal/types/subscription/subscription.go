package subscription

import "time"

const (
	StatusActive    = "active"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
)

const DefaultCurrency = "USD"

// Currencies is the fixed display set offered by the forms. The store accepts any text.
var Currencies = []string{"USD", "EUR", "GBP"}

// Statuses is the display set offered by the edit form, in menu order.
var Statuses = []string{StatusActive, StatusExpired, StatusCancelled}

// DateLayout is the calendar-date format used by forms and the API.
const DateLayout = "2006-01-02"

type Plan struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	ServiceName string    `json:"service_name" db:"service_name"`
	PlanName    string    `json:"plan_name" db:"plan_name"`
	Amount      float64   `json:"amount" db:"amount"`
	Currency    string    `json:"currency" db:"currency"`
	StartDate   time.Time `json:"start_date" db:"start_date"`
	ExpiryDate  time.Time `json:"expiry_date" db:"expiry_date"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

func (p Plan) IsActive() bool {
	return p.Status == StatusActive
}

// Input carries the editable fields of a plan. Updates overwrite all of them.
type Input struct {
	ServiceName string
	PlanName    string
	Amount      float64
	Currency    string
	StartDate   time.Time
	ExpiryDate  time.Time
	Status      string
}

// Values maps the input onto store columns.
func (in Input) Values() map[string]any {
	return map[string]any{
		"service_name": in.ServiceName,
		"plan_name":    in.PlanName,
		"amount":       in.Amount,
		"currency":     in.Currency,
		"start_date":   in.StartDate,
		"expiry_date":  in.ExpiryDate,
		"status":       in.Status,
	}
}

// PlanRequest is the JSON body accepted by the API for create and update.
type PlanRequest struct {
	ServiceName string   `json:"service_name" validate:"required"`
	PlanName    string   `json:"plan_name" validate:"required"`
	Amount      *float64 `json:"amount" validate:"required"`
	Currency    string   `json:"currency"`
	StartDate   string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	ExpiryDate  string   `json:"expiry_date" validate:"required,datetime=2006-01-02"`
	Status      string   `json:"status"`
}

type PlansResponse struct {
	Data []Plan       `json:"data"`
	Meta PlansSummary `json:"meta"`
}

type PlansSummary struct {
	Total       int    `json:"total"`
	Active      int    `json:"active"`
	MonthlyCost string `json:"monthly_cost"`
}

type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform"`
}

type DeviceToken struct {
	Token     string    `json:"token" db:"token"`
	UserID    string    `json:"user_id" db:"user_id"`
	Platform  string    `json:"platform" db:"platform"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	LastUsed  time.Time `json:"last_used" db:"last_used"`
}
