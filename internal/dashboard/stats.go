package dashboard

import (
	"strconv"

	"darkGuardAPI/internal/types/subscription"
)

type Stats struct {
	Total       int
	Active      int
	MonthlyCost float64
}

// Summarize derives the header figures from the plans currently shown.
func Summarize(plans []subscription.Plan) Stats {
	s := Stats{Total: len(plans)}
	for _, p := range plans {
		if p.IsActive() {
			s.Active++
			s.MonthlyCost += p.Amount
		}
	}
	return s
}

func (s Stats) MonthlyCostText() string {
	return strconv.FormatFloat(s.MonthlyCost, 'f', 2, 64)
}

func (s Stats) Summary() subscription.PlansSummary {
	return subscription.PlansSummary{
		Total:       s.Total,
		Active:      s.Active,
		MonthlyCost: s.MonthlyCostText(),
	}
}

type Style struct {
	Name  string
	Class string
}

var statusStyles = map[string]Style{
	subscription.StatusActive:    {Name: "active", Class: "bg-green-500/20 text-green-400 border-green-500/50"},
	subscription.StatusExpired:   {Name: "expired", Class: "bg-red-500/20 text-red-400 border-red-500/50"},
	subscription.StatusCancelled: {Name: "cancelled", Class: "bg-gray-500/20 text-gray-400 border-gray-500/50"},
}

var defaultStyle = Style{Name: "default", Class: "bg-blue-500/20 text-blue-400 border-blue-500/50"}

// StatusStyle maps a status onto its badge style. Unknown statuses get the
// default style.
func StatusStyle(status string) Style {
	if style, ok := statusStyles[status]; ok {
		return style
	}
	return defaultStyle
}
