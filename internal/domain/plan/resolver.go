package plan

import "time"

// EffectiveStatus is the derived state of an installment as of a given day.
type EffectiveStatus string

const (
	StatusPaid            EffectiveStatus = "PAID"
	StatusPaidWithPenalty EffectiveStatus = "PAID_WITH_PENALTY"
	StatusOverdue         EffectiveStatus = "OVERDUE"
	StatusOpen            EffectiveStatus = "OPEN"
	StatusInstDecayed     EffectiveStatus = "DECAYED"
)

// Resolution is the output of the installment state resolver: the cleaned
// payment facts plus the effective status.  It is the only thing engine code
// downstream of the store adapter is allowed to branch on.
type Resolution struct {
	IsPaid          bool
	PaymentDate     *time.Time
	EffectiveStatus EffectiveStatus
	DaysOverdue     int
}

// Resolve derives an installment's effective state from its raw fields.
//
// The paid flag is the single source of truth for payment: a non-null
// paid-date on an unpaid row is stale data and is dropped, never trusted.
// DECAYED applies when the owning plan is decayed and the installment is
// unpaid, overriding OVERDUE/OPEN.  PAID_WITH_PENALTY applies when paid and
// any of the penalty signals is set.  A missing due date yields OPEN with
// zero days overdue; Resolve never fails.
//
// today must be a midnight value in the engine's location (see Midnight);
// dates are compared at calendar-day granularity only.
func Resolve(inst Installment, planStatus Status, today time.Time, loc *time.Location) Resolution {
	res := Resolution{IsPaid: inst.Paid}

	if inst.Paid {
		if inst.PaidDate != nil {
			d := *inst.PaidDate
			res.PaymentDate = &d
		}
		if inst.PayMode == PayModePenaltyAdjusted || inst.PenaltyCents > 0 || inst.InterestCents > 0 {
			res.EffectiveStatus = StatusPaidWithPenalty
		} else {
			res.EffectiveStatus = StatusPaid
		}
		return res
	}

	// Unpaid from here on: PaymentDate stays nil regardless of the raw column.

	if planStatus == StatusDecayed {
		res.EffectiveStatus = StatusInstDecayed
		return res
	}

	if inst.DueDate == nil {
		res.EffectiveStatus = StatusOpen
		return res
	}

	due := Midnight(*inst.DueDate, loc)
	if due.Before(today) {
		res.EffectiveStatus = StatusOverdue
		days := DaysBetween(due, today, loc)
		if days < 0 {
			days = 0
		}
		res.DaysOverdue = days
		return res
	}

	res.EffectiveStatus = StatusOpen
	return res
}
