package plan

import "time"

// SurchargeLink is the single-cardinality WITHHOLDING→PORTAL cross-plan link
// created when a decayed withholding plan is folded into a portal plan.  At
// most one link may exist per withholding plan; re-linking to a different
// portal plan replaces the old link with a fresh snapshot.
//
// The amount fields are a point-in-time snapshot taken at link time; they are
// never recomputed afterwards, so the surcharge shown later always reflects
// the terms the link was created under.
type SurchargeLink struct {
	ID                int64 `json:"id"`
	WithholdingPlanID int64 `json:"withholding_plan_id"`
	PortalPlanID      int64 `json:"portal_plan_id"`

	ResidualCents    int64 `json:"residual_cents"`
	PortalTotalCents int64 `json:"portal_total_cents"`
	SurchargeCents   int64 `json:"surcharge_cents"`

	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ReadmissionLink is one edge of the multi-cardinality PORTAL→AMNESTY_READMISSION
// link set created by a full-plan reattachment.  One portal plan may link to
// many readmission plans.
type ReadmissionLink struct {
	ID                int64     `json:"id"`
	PortalPlanID      int64     `json:"portal_plan_id"`
	ReadmissionPlanID int64     `json:"readmission_plan_id"`
	Note              string    `json:"note,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// SurchargeQuote is the pure preview of a surcharge link: the snapshot
// amounts and their delta, sign intact.  Delta ≥ 0 means extra cost,
// delta < 0 a saving, delta = 0 break-even.  Computing a quote has no side
// effects and may be repeated at will.
type SurchargeQuote struct {
	ResidualCents    int64 `json:"residual_cents"`
	PortalTotalCents int64 `json:"portal_total_cents"`
	DeltaCents       int64 `json:"delta_cents"`
}

// QuoteSurcharge computes the surcharge preview from the two snapshot
// amounts.
func QuoteSurcharge(residualCents, portalTotalCents int64) SurchargeQuote {
	return SurchargeQuote{
		ResidualCents:    residualCents,
		PortalTotalCents: portalTotalCents,
		DeltaCents:       portalTotalCents - residualCents,
	}
}

// SurchargeFromQuote is the stored surcharge: the preview delta floored at
// zero, because a saving is not billed back to the taxpayer.
func SurchargeFromQuote(q SurchargeQuote) int64 {
	if q.DeltaCents < 0 {
		return 0
	}
	return q.DeltaCents
}
