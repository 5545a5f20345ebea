package plan

import (
	"math"
	"time"

	"github.com/fiscaldesk/rateations/pkg/types/common"
)

// InfiniteDays marks a recovery window with no upcoming unpaid installment.
// Callers render it as "no deadline" rather than a number.
const InfiniteDays = math.MaxInt32

// RecoveryWindow is the per-plan risk summary for withholding plans, which
// decay on missed deadlines rather than on an accumulated skip count.
type RecoveryWindow struct {
	OverdueCount      int        `json:"overdue_count"`
	UnpaidFutureCount int        `json:"unpaid_future_count"`
	NextDueDate       *time.Time `json:"next_due_date,omitempty"`
	DaysRemaining     int        `json:"days_remaining"`
	AtRisk            bool       `json:"at_risk"`
	PreDecayEligible  bool       `json:"pre_decay_eligible"`
	MaxDaysOverdue    int        `json:"max_days_overdue"`
}

// ComputeRecoveryWindow partitions the unpaid installments into overdue and
// future sets relative to today.  When no future unpaid installment exists the
// window is infinite and the plan is not at risk, even if everything else is
// overdue.  Otherwise the window runs to the earliest future due date and the
// plan is at risk when riskDays or fewer remain.
//
// Pre-decay eligibility is a separate signal: the unpaid run has drifted more
// than preDecayDays past its earliest due date.  It never flips the plan's
// status by itself; decay confirmation is an explicit operation.
func ComputeRecoveryWindow(installments []Installment, planStatus Status, riskDays, preDecayDays int, today time.Time, loc *time.Location) RecoveryWindow {
	w := RecoveryWindow{DaysRemaining: InfiniteDays}

	var next *time.Time
	for _, inst := range installments {
		res := Resolve(inst, planStatus, today, loc)
		if res.IsPaid || inst.DueDate == nil {
			continue
		}
		due := Midnight(*inst.DueDate, loc)
		if due.Before(today) {
			w.OverdueCount++
			if res.DaysOverdue > w.MaxDaysOverdue {
				w.MaxDaysOverdue = res.DaysOverdue
			}
			continue
		}
		w.UnpaidFutureCount++
		if next == nil || due.Before(*next) {
			d := due
			next = &d
		}
	}

	if next != nil {
		w.NextDueDate = next
		days := DaysBetween(today, *next, loc)
		if days < 0 {
			days = 0
		}
		w.DaysRemaining = days
		w.AtRisk = days <= riskDays
	}

	w.PreDecayEligible = w.MaxDaysOverdue > preDecayDays
	return w
}

// RiskBand maps the remaining days to a display severity.  The thresholds are
// fixed by policy, not configuration: more than 30 days is safe, 15 to 30 is
// caution, under 15 is critical, and zero (due today or already overdue) is
// the highest severity.  An infinite window is always safe.
func (w RecoveryWindow) RiskBand() common.RiskLevel {
	switch {
	case w.DaysRemaining == InfiniteDays, w.DaysRemaining > 30:
		return common.RiskSafe
	case w.DaysRemaining >= 15:
		return common.RiskCaution
	case w.DaysRemaining > 0:
		return common.RiskCritical
	default:
		return common.RiskMaximum
	}
}
