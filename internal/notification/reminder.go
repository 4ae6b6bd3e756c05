// Package notification delivers renewal reminders by push and email.
package notification

import (
	"fmt"

	"darkGuardAPI/internal/types/subscription"
)

// Reminder announces that a plan expires in DaysLeft days.
type Reminder struct {
	Plan     subscription.Plan
	DaysLeft int
}

func (r Reminder) Title() string {
	return fmt.Sprintf("%s renews soon", r.Plan.ServiceName)
}

func (r Reminder) Body() string {
	when := fmt.Sprintf("in %d days", r.DaysLeft)
	switch r.DaysLeft {
	case 0:
		when = "today"
	case 1:
		when = "tomorrow"
	}
	return fmt.Sprintf("Your %s %s plan (%s %.2f) expires %s, on %s.",
		r.Plan.ServiceName, r.Plan.PlanName, r.Plan.Currency, r.Plan.Amount,
		when, r.Plan.ExpiryDate.Format(subscription.DateLayout))
}

// Data is the push payload the mobile app uses to open the plan.
func (r Reminder) Data() map[string]string {
	return map[string]string{
		"type":        "renewal_reminder",
		"plan_id":     r.Plan.ID,
		"days_left":   fmt.Sprint(r.DaysLeft),
		"expiry_date": r.Plan.ExpiryDate.Format(subscription.DateLayout),
	}
}
