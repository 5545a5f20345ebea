package plan

import "time"

// KPIOptions carries the tunables the risk calculators need.  Zero values are
// replaced with the policy defaults so a caller can pass the struct literal.
type KPIOptions struct {
	MaxSkips     int
	RiskDays     int
	PreDecayDays int
}

const (
	defaultMaxSkips     = 8
	defaultRiskDays     = 20
	defaultPreDecayDays = 90
)

func (o KPIOptions) withDefaults() KPIOptions {
	if o.MaxSkips <= 0 {
		o.MaxSkips = defaultMaxSkips
	}
	if o.RiskDays <= 0 {
		o.RiskDays = defaultRiskDays
	}
	if o.PreDecayDays <= 0 {
		o.PreDecayDays = defaultPreDecayDays
	}
	return o
}

// PlanKPI is the per-plan aggregate: monetary totals, installment counts, and
// the risk summary matching the plan kind.  SkipBudget is set for portal and
// amnesty kinds, Recovery for withholding; the other pointer stays nil.
type PlanKPI struct {
	PlanID            int64           `json:"plan_id"`
	Kind              Kind            `json:"kind"`
	Status            Status          `json:"status"`
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

// PortfolioKPI is the per-column sum over a set of plans.  PlanCount carries
// the number of aggregated plans; callers only render the totals row when it
// exceeds one.
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

// AggregatePlan folds a plan's installments into the per-plan KPI.  It never
// mutates its inputs; missing amounts simply contribute zero.
func AggregatePlan(p Plan, installments []Installment, opts KPIOptions, today time.Time, loc *time.Location) PlanKPI {
	opts = opts.withDefaults()
	kpi := PlanKPI{
		PlanID:           p.ID,
		Kind:             p.Kind,
		Status:           p.Status,
		InstallmentCount: len(installments),
	}

	for _, inst := range installments {
		res := Resolve(inst, p.Status, today, loc)
		kpi.TotalDueCents += inst.AmountCents
		if res.IsPaid {
			kpi.PaidCount++
			kpi.TotalPaidCents += inst.AmountCents
		} else {
			kpi.UnpaidCount++
		}
		if res.EffectiveStatus == StatusOverdue {
			kpi.OverdueCount++
			kpi.TotalOverdueCents += inst.AmountCents
		}
	}
	kpi.ResidualCents = kpi.TotalDueCents - kpi.TotalPaidCents

	switch p.Kind {
	case KindWithholding:
		w := ComputeRecoveryWindow(installments, p.Status, opts.RiskDays, opts.PreDecayDays, today, loc)
		kpi.Recovery = &w
	default:
		b := ComputeSkipBudget(installments, p.Status, opts.MaxSkips, today, loc)
		kpi.SkipBudget = &b
	}
	return kpi
}

// AtRisk reports whether the kind-specific calculator flagged the plan.
func (k PlanKPI) AtRisk() bool {
	if k.SkipBudget != nil {
		return k.SkipBudget.AtRisk
	}
	if k.Recovery != nil {
		return k.Recovery.AtRisk
	}
	return false
}

// AggregatePortfolio sums per-plan KPIs into portfolio totals.  Decayed
// plans do not count: their benefit is gone, so their amounts stay out of
// the active totals and PlanCount reflects only the aggregated plans.
func AggregatePortfolio(kpis []PlanKPI) PortfolioKPI {
	var total PortfolioKPI
	for _, k := range kpis {
		if k.Status == StatusDecayed {
			continue
		}
		total.PlanCount++
		total.TotalDueCents += k.TotalDueCents
		total.TotalPaidCents += k.TotalPaidCents
		total.TotalOverdueCents += k.TotalOverdueCents
		total.ResidualCents += k.ResidualCents
		total.InstallmentCount += k.InstallmentCount
		total.PaidCount += k.PaidCount
		total.UnpaidCount += k.UnpaidCount
		total.OverdueCount += k.OverdueCount
		if k.AtRisk() {
			total.AtRiskCount++
		}
	}
	return total
}

// NeedsTotalsRow reports whether a portfolio is large enough to warrant a
// grand-total presentation (a single plan is its own total).
func (p PortfolioKPI) NeedsTotalsRow() bool {
	return p.PlanCount > 1
}
