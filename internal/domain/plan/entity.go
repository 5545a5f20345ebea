// Package plan contains the domain model of the rateation lifecycle engine:
// plans, installments, debts, cross-plan links, the installment state
// resolver, the two risk calculators, and the KPI aggregator.  Everything in
// this package is side-effect free; persistence and messaging live behind the
// Repository port and the published events.
package plan

import (
	"fmt"
	"time"
)

// Kind classifies a rateation plan.
type Kind string

const (
	KindWithholding        Kind = "WITHHOLDING"         // F24 tax-withholding plan
	KindPortal             Kind = "PORTAL"              // PagoPA payment-portal plan
	KindAmnestyBase        Kind = "AMNESTY_BASE"        // settlement-scheme base plan
	KindAmnestyReadmission Kind = "AMNESTY_READMISSION" // settlement-scheme readmission plan
	KindOther              Kind = "OTHER"
)

// Status is the lifecycle status of a plan.
type Status string

const (
	StatusActive       Status = "ACTIVE"
	StatusLate         Status = "LATE"
	StatusCompleted    Status = "COMPLETED"
	StatusDecayed      Status = "DECAYED"
	StatusInterrupted  Status = "INTERRUPTED"
	StatusExtinguished Status = "EXTINGUISHED"
)

// Interruption is the metadata recorded when a plan is interrupted in favour
// of one or more readmission plans.
type Interruption struct {
	At     time.Time `json:"at"`
	Reason string    `json:"reason,omitempty"`
	// ByPlanID references the plan that caused the interruption.  A plan in
	// StatusInterrupted must always carry a non-zero reference.
	ByPlanID int64 `json:"by_plan_id"`
}

// Plan is the aggregate root of a rateation.
type Plan struct {
	ID         int64  `json:"id"`
	Number     string `json:"number"`
	Kind       Kind   `json:"kind"`
	TaxpayerID string `json:"taxpayer_id,omitempty"`
	OwnerID    string `json:"owner_id"`

	TotalCents int64  `json:"total_cents"`
	Status     Status `json:"status"`

	Interruption *Interruption `json:"interruption,omitempty"`
	DecayedAt    *time.Time    `json:"decayed_at,omitempty"`

	// MigratedDebtIDs records, on the source plan, the debt identifiers moved
	// out by the last debt migration.  Rollback re-derives its working set
	// from this list, never from caller-supplied ids.
	MigratedDebtIDs []int64 `json:"migrated_debt_ids,omitempty"`

	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidKind reports whether k is one of the known plan kinds.
func ValidKind(k Kind) bool {
	switch k {
	case KindWithholding, KindPortal, KindAmnestyBase, KindAmnestyReadmission, KindOther:
		return true
	}
	return false
}

// Validate checks the structural invariants of the plan record.
func (p *Plan) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("plan: id must be positive")
	}
	if !ValidKind(p.Kind) {
		return fmt.Errorf("plan %d: unknown kind %q", p.ID, p.Kind)
	}
	if p.Status == StatusInterrupted && (p.Interruption == nil || p.Interruption.ByPlanID == 0) {
		return fmt.Errorf("plan %d: interrupted without an interrupting plan reference", p.ID)
	}
	if p.Status == StatusDecayed && p.DecayedAt == nil {
		return fmt.Errorf("plan %d: decayed without a decay timestamp", p.ID)
	}
	return nil
}

// IsDecayed reports whether the plan has terminally lost its benefits.
func (p *Plan) IsDecayed() bool {
	return p.Status == StatusDecayed
}

// CountsTowardActiveTotals reports whether the plan participates in active
// portfolio aggregation.  Decayed plans are excluded.
func (p *Plan) CountsTowardActiveTotals() bool {
	return p.Status != StatusDecayed
}

// CanTransition reports whether moving the plan from its current status to
// the target is a legal lifecycle transition.
func (p *Plan) CanTransition(to Status) bool {
	allowed := map[Status][]Status{
		StatusActive:      {StatusLate, StatusCompleted, StatusDecayed, StatusInterrupted, StatusExtinguished},
		StatusLate:        {StatusActive, StatusCompleted, StatusDecayed, StatusInterrupted, StatusExtinguished},
		StatusInterrupted: {StatusActive},
		StatusDecayed:     {StatusActive}, // surcharge unlink restores the plan
	}
	for _, s := range allowed[p.Status] {
		if s == to {
			return true
		}
	}
	return false
}

// Interrupt marks the plan interrupted in favour of byPlanID.
func (p *Plan) Interrupt(byPlanID int64, reason string, at time.Time) error {
	if !p.CanTransition(StatusInterrupted) {
		return fmt.Errorf("plan %d: cannot interrupt from status %s", p.ID, p.Status)
	}
	if byPlanID <= 0 {
		return fmt.Errorf("plan %d: interrupting plan id must be positive", p.ID)
	}
	p.Status = StatusInterrupted
	p.Interruption = &Interruption{At: at, Reason: reason, ByPlanID: byPlanID}
	p.UpdatedAt = at
	return nil
}

// Reactivate clears interruption or decay state and restores StatusActive.
func (p *Plan) Reactivate(at time.Time) error {
	if !p.CanTransition(StatusActive) {
		return fmt.Errorf("plan %d: cannot reactivate from status %s", p.ID, p.Status)
	}
	p.Status = StatusActive
	p.Interruption = nil
	p.DecayedAt = nil
	p.UpdatedAt = at
	return nil
}

// ConfirmDecay marks the plan decayed at the given time.  The caller is
// responsible for checking eligibility (see RecoveryWindow.PreDecayEligible);
// the transition itself is always explicit, never implicit.
func (p *Plan) ConfirmDecay(at time.Time) error {
	if !p.CanTransition(StatusDecayed) {
		return fmt.Errorf("plan %d: cannot decay from status %s", p.ID, p.Status)
	}
	p.Status = StatusDecayed
	t := at
	p.DecayedAt = &t
	p.UpdatedAt = at
	return nil
}
