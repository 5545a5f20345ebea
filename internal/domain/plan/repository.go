package plan

import (
	"context"
	"time"
)

// PlanQueryOptions defines filtering and pagination for plan queries.
type PlanQueryOptions struct {
	Limit  int
	Offset int
	Kind   Kind
	Status Status
}

// PlanQueryOption defines a functional option for plan queries.
type PlanQueryOption func(*PlanQueryOptions)

// WithLimit sets the limit for the query.
func WithLimit(limit int) PlanQueryOption {
	return func(o *PlanQueryOptions) {
		o.Limit = limit
	}
}

// WithOffset sets the offset for the query.
func WithOffset(offset int) PlanQueryOption {
	return func(o *PlanQueryOptions) {
		o.Offset = offset
	}
}

// WithKind restricts the query to a single plan kind.
func WithKind(kind Kind) PlanQueryOption {
	return func(o *PlanQueryOptions) {
		o.Kind = kind
	}
}

// WithStatus restricts the query to a single plan status.
func WithStatus(status Status) PlanQueryOption {
	return func(o *PlanQueryOptions) {
		o.Status = status
	}
}

// ApplyPlanOptions applies the given options and returns the final configuration.
func ApplyPlanOptions(opts ...PlanQueryOption) PlanQueryOptions {
	options := PlanQueryOptions{
		Limit:  20,
		Offset: 0,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Limit > 100 {
		options.Limit = 100
	}
	if options.Limit <= 0 {
		options.Limit = 20
	}
	if options.Offset < 0 {
		options.Offset = 0
	}
	return options
}

// Repository defines the persistence contract for the plan domain.  All
// mutating workflows run through WithTx so either everything lands or nothing
// does; no partial application is ever observable through this interface.
type Repository interface {
	// Plan
	CreatePlan(ctx context.Context, p *Plan) error
	GetPlan(ctx context.Context, id int64) (*Plan, error)
	ListPlansByOwner(ctx context.Context, ownerID string, opts ...PlanQueryOption) ([]*Plan, int64, error)
	UpdatePlanStatus(ctx context.Context, id int64, status Status, interruption *Interruption, decayedAt *time.Time) error
	SetMigratedDebtIDs(ctx context.Context, id int64, debtIDs []int64) error
	UpdatePlanNote(ctx context.Context, id int64, note string) error

	// Installment
	BatchCreateInstallments(ctx context.Context, installments []*Installment) error
	GetInstallment(ctx context.Context, id int64) (*Installment, error)
	GetInstallmentBySeq(ctx context.Context, planID int64, seq int) (*Installment, error)
	ListInstallmentsByPlan(ctx context.Context, planID int64) ([]Installment, error)
	UpdateInstallmentPayment(ctx context.Context, id int64, paid bool, paidDate *time.Time, mode PaymentMode, penaltyCents, interestCents, totalPaidCents int64) error
	UpdateInstallmentDueDate(ctx context.Context, id int64, dueDate time.Time, postponed bool) error

	// Debt
	GetDebt(ctx context.Context, id int64) (*Debt, error)
	GetDebtsByIDs(ctx context.Context, ids []int64) ([]Debt, error)
	ListDebtLinksByPlan(ctx context.Context, planID int64) ([]PlanDebtLink, error)
	GetActiveLinkByDebt(ctx context.Context, debtID int64) (*PlanDebtLink, error)
	CreateDebtLink(ctx context.Context, link *PlanDebtLink) error
	UpdateDebtLinkStatus(ctx context.Context, planID, debtID int64, status LinkStatus, migratedAt *time.Time) error
	DeleteDebtLink(ctx context.Context, planID, debtID int64) error

	// Cross-plan link
	CreateReadmissionLink(ctx context.Context, link *ReadmissionLink) error
	ListReadmissionLinksByPortal(ctx context.Context, portalPlanID int64) ([]ReadmissionLink, error)
	DeleteReadmissionLinks(ctx context.Context, portalPlanID int64, targetIDs []int64) (int64, error)
	CountReadmissionLinks(ctx context.Context, portalPlanID int64) (int64, error)

	// Surcharge link
	CreateSurchargeLink(ctx context.Context, link *SurchargeLink) error
	GetSurchargeLinkByWithholding(ctx context.Context, withholdingPlanID int64) (*SurchargeLink, error)
	DeleteSurchargeLink(ctx context.Context, withholdingPlanID int64) error

	// Transaction
	WithTx(ctx context.Context, fn func(Repository) error) error
}
