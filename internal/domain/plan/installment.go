package plan

import (
	"fmt"
	"time"
)

// PaymentMode records how an installment was settled.
type PaymentMode string

const (
	PayModeOrdinary        PaymentMode = "ORDINARY"
	PayModePenaltyAdjusted PaymentMode = "PENALTY_ADJUSTED"
)

// Frequency is the spacing between generated installments.
type Frequency string

const (
	FreqMonthly   Frequency = "MONTHLY"
	FreqBimonthly Frequency = "BIMONTHLY"
	FreqQuarterly Frequency = "QUARTERLY"
)

// Installment is one due payment of a plan.  All raw fields come straight
// from the store; nothing here is derived.  Derived state (effective status,
// clean payment date, days overdue) is produced exclusively by Resolve so a
// stale paid-date column on an unpaid row can never leak into the engine.
type Installment struct {
	ID     int64 `json:"id"`
	PlanID int64 `json:"plan_id"`
	// Seq is the 1-based sequence number, unique within the plan.
	Seq int `json:"seq"`

	DueDate     *time.Time `json:"due_date,omitempty"`
	AmountCents int64      `json:"amount_cents"`

	Paid     bool        `json:"paid"`
	PaidDate *time.Time  `json:"paid_date,omitempty"`
	PayMode  PaymentMode `json:"pay_mode,omitempty"`

	PenaltyCents          int64 `json:"penalty_cents"`
	InterestCents         int64 `json:"interest_cents"`
	TotalPaidWithPenaltyC int64 `json:"total_paid_with_penalty_cents"`

	Postponed bool `json:"postponed"`
}

// monthsPer maps a frequency to its month step.
func monthsPer(f Frequency) (int, bool) {
	switch f {
	case FreqMonthly:
		return 1, true
	case FreqBimonthly:
		return 2, true
	case FreqQuarterly:
		return 3, true
	}
	return 0, false
}

// GenerateSchedule builds count installments of amountCents each, the first
// due at firstDue and the rest spaced by freq.  The remainder of an uneven
// division stays with the caller: amountCents is per installment, not a
// total to split.
func GenerateSchedule(planID int64, firstDue time.Time, freq Frequency, count int, amountCents int64) ([]Installment, error) {
	step, ok := monthsPer(freq)
	if !ok {
		return nil, fmt.Errorf("plan %d: unknown frequency %q", planID, freq)
	}
	if count <= 0 {
		return nil, fmt.Errorf("plan %d: installment count must be positive", planID)
	}
	if amountCents <= 0 {
		return nil, fmt.Errorf("plan %d: installment amount must be positive", planID)
	}
	if firstDue.IsZero() {
		return nil, fmt.Errorf("plan %d: first due date is required", planID)
	}

	out := make([]Installment, 0, count)
	for i := 0; i < count; i++ {
		due := firstDue.AddDate(0, i*step, 0)
		out = append(out, Installment{
			PlanID:      planID,
			Seq:         i + 1,
			DueDate:     &due,
			AmountCents: amountCents,
		})
	}
	return out, nil
}

// ValidateSchedule checks an explicitly supplied installment list: sequence
// numbers must be 1..n without gaps or duplicates and amounts positive.
func ValidateSchedule(planID int64, installments []Installment) error {
	if len(installments) == 0 {
		return fmt.Errorf("plan %d: schedule must contain at least one installment", planID)
	}
	seen := make(map[int]bool, len(installments))
	for _, inst := range installments {
		if inst.Seq < 1 || inst.Seq > len(installments) {
			return fmt.Errorf("plan %d: installment seq %d out of range [1, %d]", planID, inst.Seq, len(installments))
		}
		if seen[inst.Seq] {
			return fmt.Errorf("plan %d: duplicate installment seq %d", planID, inst.Seq)
		}
		seen[inst.Seq] = true
		if inst.AmountCents <= 0 {
			return fmt.Errorf("plan %d: installment seq %d amount must be positive", planID, inst.Seq)
		}
	}
	return nil
}

// Postpone moves the installment's due date forward and flags it postponed.
// The new due date replaces the old one: the effective-status axis keeps
// working off DueDate alone, so a postponed installment only turns overdue
// once the new date has passed.
func (i *Installment) Postpone(newDue time.Time) error {
	if i.Paid {
		return fmt.Errorf("installment %d/%d: cannot postpone a paid installment", i.PlanID, i.Seq)
	}
	if i.DueDate != nil && !newDue.After(*i.DueDate) {
		return fmt.Errorf("installment %d/%d: postponed due date must be after the current one", i.PlanID, i.Seq)
	}
	d := newDue
	i.DueDate = &d
	i.Postponed = true
	return nil
}
