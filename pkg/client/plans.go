package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// PlansClient serves the read side of the API: plans, resolved installments,
// and KPI views.
type PlansClient struct {
	client *Client
}

// Plan mirrors the API's plan resource.
type Plan struct {
	ID              int64         `json:"id"`
	Number          string        `json:"number"`
	Kind            string        `json:"kind"`
	TaxpayerID      string        `json:"taxpayer_id,omitempty"`
	OwnerID         string        `json:"owner_id"`
	TotalCents      int64         `json:"total_cents"`
	Status          string        `json:"status"`
	Interruption    *Interruption `json:"interruption,omitempty"`
	DecayedAt       *time.Time    `json:"decayed_at,omitempty"`
	MigratedDebtIDs []int64       `json:"migrated_debt_ids,omitempty"`
	Note            string        `json:"note,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Interruption records why and when a plan was interrupted.
type Interruption struct {
	At       time.Time `json:"at"`
	Reason   string    `json:"reason,omitempty"`
	ByPlanID int64     `json:"by_plan_id"`
}

// Installment mirrors the API's resolved installment view.
type Installment struct {
	ID                    int64      `json:"id"`
	PlanID                int64      `json:"plan_id"`
	Seq                   int        `json:"seq"`
	DueDate               *time.Time `json:"due_date,omitempty"`
	AmountCents           int64      `json:"amount_cents"`
	Paid                  bool       `json:"paid"`
	PaidDate              *time.Time `json:"paid_date,omitempty"`
	PayMode               string     `json:"pay_mode,omitempty"`
	PenaltyCents          int64      `json:"penalty_cents"`
	InterestCents         int64      `json:"interest_cents"`
	TotalPaidWithPenaltyC int64      `json:"total_paid_with_penalty_cents"`
	Postponed             bool       `json:"postponed"`
	EffectiveStatus       string     `json:"effective_status"`
	DaysOverdue           int        `json:"days_overdue,omitempty"`
}

// SkipBudget is the decay-risk summary of portal and amnesty plans.
type SkipBudget struct {
	MaxSkips       int  `json:"max_skips"`
	UnpaidOverdue  int  `json:"unpaid_overdue"`
	RemainingSkips int  `json:"remaining_skips"`
	AtRisk         bool `json:"at_risk"`
}

// RecoveryWindow is the decay-risk summary of withholding plans.
type RecoveryWindow struct {
	OverdueCount      int        `json:"overdue_count"`
	UnpaidFutureCount int        `json:"unpaid_future_count"`
	NextDueDate       *time.Time `json:"next_due_date,omitempty"`
	DaysRemaining     int        `json:"days_remaining"`
	AtRisk            bool       `json:"at_risk"`
	PreDecayEligible  bool       `json:"pre_decay_eligible"`
	MaxDaysOverdue    int        `json:"max_days_overdue"`
}

// PlanKPI is the per-plan aggregate.
type PlanKPI struct {
	PlanID            int64           `json:"plan_id"`
	Kind              string          `json:"kind"`
	Status            string          `json:"status"`
	TotalDueCents     int64           `json:"total_due_cents"`
	TotalPaidCents    int64           `json:"total_paid_cents"`
	TotalOverdueCents int64           `json:"total_overdue_cents"`
	ResidualCents     int64           `json:"residual_cents"`
	InstallmentCount  int             `json:"installment_count"`
	PaidCount         int             `json:"paid_count"`
	UnpaidCount       int             `json:"unpaid_count"`
	OverdueCount      int             `json:"overdue_count"`
	SkipBudget        *SkipBudget     `json:"skip_budget,omitempty"`
	Recovery          *RecoveryWindow `json:"recovery,omitempty"`
}

// PlanKPIView pairs a plan with its aggregate.
type PlanKPIView struct {
	Plan Plan      `json:"plan"`
	KPI  PlanKPI   `json:"kpi"`
	Band string    `json:"band,omitempty"`
	AsOf time.Time `json:"as_of"`
}

// PortfolioKPI is the cross-plan totals row.
type PortfolioKPI struct {
	PlanCount         int   `json:"plan_count"`
	TotalDueCents     int64 `json:"total_due_cents"`
	TotalPaidCents    int64 `json:"total_paid_cents"`
	TotalOverdueCents int64 `json:"total_overdue_cents"`
	ResidualCents     int64 `json:"residual_cents"`
	InstallmentCount  int   `json:"installment_count"`
	PaidCount         int   `json:"paid_count"`
	UnpaidCount       int   `json:"unpaid_count"`
	OverdueCount      int   `json:"overdue_count"`
	AtRiskCount       int   `json:"at_risk_count"`
}

// PortfolioView is the caller's full portfolio rollup.
type PortfolioView struct {
	Plans  []PlanKPIView `json:"plans"`
	Totals *PortfolioKPI `json:"totals,omitempty"`
	AsOf   time.Time     `json:"as_of"`
}

// PlanList is a page of plans.
type PlanList struct {
	Plans []Plan `json:"plans"`
	Total int64  `json:"total"`
}

// ScheduleSpec asks the server to generate an evenly spaced schedule.
type ScheduleSpec struct {
	FirstDue    time.Time `json:"first_due"`
	Frequency   string    `json:"frequency"`
	Count       int       `json:"count"`
	AmountCents int64     `json:"amount_cents"`
}

// CreatePlanRequest opens a new plan.  Exactly one of Schedule or
// Installments must be set.
type CreatePlanRequest struct {
	Number       string        `json:"number"`
	Kind         string        `json:"kind"`
	TaxpayerID   string        `json:"taxpayer_id,omitempty"`
	Note         string        `json:"note,omitempty"`
	Schedule     *ScheduleSpec `json:"schedule,omitempty"`
	Installments []Installment `json:"installments,omitempty"`
}

// CreatedPlan is the server's response to a plan creation.
type CreatedPlan struct {
	Plan         Plan          `json:"plan"`
	Installments []Installment `json:"installments"`
}

// ListOptions filters and pages a plan listing.  Zero values are omitted.
type ListOptions struct {
	Kind   string
	Status string
	Limit  int
	Offset int
}

// List returns the caller's plans.
func (pc *PlansClient) List(ctx context.Context, opts ListOptions) (*PlanList, error) {
	q := url.Values{}
	if opts.Kind != "" {
		q.Set("kind", opts.Kind)
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	path := "/api/v1/plans"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out PlanList
	if err := pc.client.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create opens a new plan with its installment schedule.
func (pc *PlansClient) Create(ctx context.Context, req CreatePlanRequest) (*CreatedPlan, error) {
	var out CreatedPlan
	if err := pc.client.do(ctx, http.MethodPost, "/api/v1/plans", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns one plan.
func (pc *PlansClient) Get(ctx context.Context, planID int64) (*Plan, error) {
	var out Plan
	path := fmt.Sprintf("/api/v1/plans/%d", planID)
	if err := pc.client.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Installments returns a plan's installments with their resolved states.
func (pc *PlansClient) Installments(ctx context.Context, planID int64) ([]Installment, error) {
	var out struct {
		PlanID       int64         `json:"plan_id"`
		Installments []Installment `json:"installments"`
	}
	path := fmt.Sprintf("/api/v1/plans/%d/installments", planID)
	if err := pc.client.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Installments, nil
}

// KPI returns one plan's aggregate view.
func (pc *PlansClient) KPI(ctx context.Context, planID int64) (*PlanKPIView, error) {
	var out PlanKPIView
	path := fmt.Sprintf("/api/v1/plans/%d/kpi", planID)
	if err := pc.client.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PortfolioKPI returns the rollup over every plan the caller owns.
func (pc *PlansClient) PortfolioKPI(ctx context.Context) (*PortfolioView, error) {
	var out PortfolioView
	if err := pc.client.do(ctx, http.MethodGet, "/api/v1/portfolio/kpi", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
