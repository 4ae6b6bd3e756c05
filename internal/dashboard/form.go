package dashboard

import (
	"fmt"
	"strconv"
	"time"

	"darkGuardAPI/internal/types/subscription"
	"darkGuardAPI/internal/validation"
)

// Form mirrors the editable fields of a plan as submitted text. Nothing is
// converted until submit.
type Form struct {
	ServiceName string `form:"service_name" validate:"required"`
	PlanName    string `form:"plan_name" validate:"required"`
	Amount      string `form:"amount" validate:"required,numeric"`
	Currency    string `form:"currency" validate:"required"`
	StartDate   string `form:"start_date" validate:"required,datetime=2006-01-02"`
	ExpiryDate  string `form:"expiry_date" validate:"required,datetime=2006-01-02"`
	Status      string `form:"status" validate:"required"`
}

func DefaultForm() Form {
	return Form{
		Currency: subscription.DefaultCurrency,
		Status:   subscription.StatusActive,
	}
}

func FormFromPlan(p subscription.Plan) Form {
	return Form{
		ServiceName: p.ServiceName,
		PlanName:    p.PlanName,
		Amount:      strconv.FormatFloat(p.Amount, 'f', -1, 64),
		Currency:    p.Currency,
		StartDate:   p.StartDate.Format(subscription.DateLayout),
		ExpiryDate:  p.ExpiryDate.Format(subscription.DateLayout),
		Status:      p.Status,
	}
}

// Input validates the form and converts it for the store.
func (f Form) Input() (subscription.Input, error) {
	if err := validation.Struct(f); err != nil {
		return subscription.Input{}, err
	}
	amount, err := strconv.ParseFloat(f.Amount, 64)
	if err != nil {
		return subscription.Input{}, fmt.Errorf("amount must be a number")
	}
	start, err := time.Parse(subscription.DateLayout, f.StartDate)
	if err != nil {
		return subscription.Input{}, fmt.Errorf("start_date must be a date (YYYY-MM-DD)")
	}
	expiry, err := time.Parse(subscription.DateLayout, f.ExpiryDate)
	if err != nil {
		return subscription.Input{}, fmt.Errorf("expiry_date must be a date (YYYY-MM-DD)")
	}

	return subscription.Input{
		ServiceName: f.ServiceName,
		PlanName:    f.PlanName,
		Amount:      amount,
		Currency:    f.Currency,
		StartDate:   start,
		ExpiryDate:  expiry,
		Status:      f.Status,
	}, nil
}

// RequestInput converts an API request the same way a submitted form is.
func RequestInput(req subscription.PlanRequest) (subscription.Input, error) {
	if err := validation.Struct(req); err != nil {
		return subscription.Input{}, err
	}
	f := Form{
		ServiceName: req.ServiceName,
		PlanName:    req.PlanName,
		Amount:      strconv.FormatFloat(*req.Amount, 'f', -1, 64),
		Currency:    req.Currency,
		StartDate:   req.StartDate,
		ExpiryDate:  req.ExpiryDate,
		Status:      req.Status,
	}
	if f.Currency == "" {
		f.Currency = subscription.DefaultCurrency
	}
	if f.Status == "" {
		f.Status = subscription.StatusActive
	}
	return f.Input()
}
