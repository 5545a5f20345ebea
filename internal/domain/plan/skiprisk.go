package plan

import "time"

// SkipBudget is the per-plan decay-risk summary for plan kinds governed by a
// maximum number of skippable installments (amnesty plans in particular).
type SkipBudget struct {
	MaxSkips       int  `json:"max_skips"`
	UnpaidOverdue  int  `json:"unpaid_overdue"`
	RemainingSkips int  `json:"remaining_skips"`
	AtRisk         bool `json:"at_risk"`
}

// ComputeSkipBudget counts the unpaid installments whose due date is strictly
// before today and derives the remaining skip allowance.  The remaining count
// is clamped to [0, maxSkips]; the plan is at risk exactly when the budget is
// exhausted.  Installments without a due date never count as overdue.
func ComputeSkipBudget(installments []Installment, planStatus Status, maxSkips int, today time.Time, loc *time.Location) SkipBudget {
	b := SkipBudget{MaxSkips: maxSkips}
	for _, inst := range installments {
		res := Resolve(inst, planStatus, today, loc)
		if res.EffectiveStatus == StatusOverdue {
			b.UnpaidOverdue++
		}
	}
	remaining := maxSkips - b.UnpaidOverdue
	if remaining < 0 {
		remaining = 0
	}
	if remaining > maxSkips {
		remaining = maxSkips
	}
	b.RemainingSkips = remaining
	b.AtRisk = remaining == 0
	return b
}
