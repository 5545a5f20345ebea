package client

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// MigrationsClient serves the mutation side of the API: debt migration,
// cross-plan reattachment, surcharge links, and installment lifecycle
// operations.
type MigrationsClient struct {
	client *Client
}

// MigrateDebtsRequest moves debts from a source plan into a readmission plan.
type MigrateDebtsRequest struct {
	DebtIDs      []int64 `json:"debt_ids"`
	TargetPlanID int64   `json:"target_plan_id"`
	Note         string  `json:"note,omitempty"`
}

// MigrateDebtsResult reports the completed migration.
type MigrateDebtsResult struct {
	Migrated     int   `json:"migrated"`
	TargetPlanID int64 `json:"target_plan_id"`
}

// MigrateDebts moves the given debts off sourcePlanID.
func (mc *MigrationsClient) MigrateDebts(ctx context.Context, sourcePlanID int64, req MigrateDebtsRequest) (*MigrateDebtsResult, error) {
	var out MigrateDebtsResult
	path := fmt.Sprintf("/api/v1/plans/%d/migrate-debts", sourcePlanID)
	if err := mc.client.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RollbackRequest undoes a previous migration off the source plan.  An empty
// DebtIDs set rolls back every migrated debt.
type RollbackRequest struct {
	DebtIDs []int64 `json:"debt_ids,omitempty"`
}

// RollbackMigration restores migrated debts to sourcePlanID.
func (mc *MigrationsClient) RollbackMigration(ctx context.Context, sourcePlanID int64, req RollbackRequest) error {
	path := fmt.Sprintf("/api/v1/plans/%d/rollback-migration", sourcePlanID)
	return mc.client.do(ctx, http.MethodPost, path, req, nil)
}

// AttachRequest links a portal plan to readmission targets, interrupting it.
type AttachRequest struct {
	TargetPlanIDs []int64 `json:"target_plan_ids"`
	Note          string  `json:"note,omitempty"`
}

// LinkResult reports one created cross-plan link.
type LinkResult struct {
	LinkID            int64 `json:"link_id"`
	ReadmissionPlanID int64 `json:"readmission_plan_id"`
}

// Attach interrupts portalPlanID and links it to the targets.
func (mc *MigrationsClient) Attach(ctx context.Context, portalPlanID int64, req AttachRequest) ([]LinkResult, error) {
	var out struct {
		Links []LinkResult `json:"links"`
	}
	path := fmt.Sprintf("/api/v1/plans/%d/attach", portalPlanID)
	if err := mc.client.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return out.Links, nil
}

// DetachRequest removes cross-plan links.  An empty TargetPlanIDs set removes
// every link of the portal plan.
type DetachRequest struct {
	TargetPlanIDs []int64 `json:"target_plan_ids,omitempty"`
}

// DetachResult reports whether the portal plan was released back to ACTIVE.
type DetachResult struct {
	Unlocked bool `json:"unlocked"`
}

// Detach removes the selected links of portalPlanID.
func (mc *MigrationsClient) Detach(ctx context.Context, portalPlanID int64, req DetachRequest) (*DetachResult, error) {
	var out DetachResult
	path := fmt.Sprintf("/api/v1/plans/%d/detach", portalPlanID)
	if err := mc.client.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SurchargeQuote is the preview of a surcharge link.
type SurchargeQuote struct {
	ResidualCents    int64 `json:"residual_cents"`
	PortalTotalCents int64 `json:"portal_total_cents"`
	DeltaCents       int64 `json:"delta_cents"`
}

// PreviewSurcharge quotes the surcharge of linking a withholding plan to a
// portal plan without writing anything.
func (mc *MigrationsClient) PreviewSurcharge(ctx context.Context, withholdingPlanID, portalPlanID int64) (*SurchargeQuote, error) {
	var out SurchargeQuote
	path := fmt.Sprintf("/api/v1/plans/%d/surcharge-preview/%d", withholdingPlanID, portalPlanID)
	if err := mc.client.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LinkSurchargeRequest creates or refreshes the surcharge link of a
// withholding plan.
type LinkSurchargeRequest struct {
	PortalPlanID int64  `json:"portal_plan_id"`
	Reason       string `json:"reason,omitempty"`
}

// LinkSurchargeResult reports the written link.
type LinkSurchargeResult struct {
	LinkID         int64  `json:"link_id"`
	SurchargeCents int64  `json:"surcharge_cents"`
	Action         string `json:"action"`
}

// LinkSurcharge links withholdingPlanID to a portal plan with the computed
// surcharge.
func (mc *MigrationsClient) LinkSurcharge(ctx context.Context, withholdingPlanID int64, req LinkSurchargeRequest) (*LinkSurchargeResult, error) {
	var out LinkSurchargeResult
	path := fmt.Sprintf("/api/v1/plans/%d/surcharge-link", withholdingPlanID)
	if err := mc.client.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UnlinkSurchargeResult reports whether the withholding plan was restored to
// ACTIVE.
type UnlinkSurchargeResult struct {
	Restored bool `json:"restored"`
}

// UnlinkSurcharge removes the surcharge link of withholdingPlanID.
func (mc *MigrationsClient) UnlinkSurcharge(ctx context.Context, withholdingPlanID int64, reason string) (*UnlinkSurchargeResult, error) {
	var out UnlinkSurchargeResult
	body := map[string]string{}
	if reason != "" {
		body["reason"] = reason
	}
	path := fmt.Sprintf("/api/v1/plans/%d/surcharge-link", withholdingPlanID)
	if err := mc.client.do(ctx, http.MethodDelete, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkPaidRequest records a payment against one installment.
type MarkPaidRequest struct {
	Seq           int       `json:"seq"`
	PaidDate      time.Time `json:"paid_date"`
	Mode          string    `json:"mode,omitempty"`
	PenaltyCents  int64     `json:"penalty_cents,omitempty"`
	InterestCents int64     `json:"interest_cents,omitempty"`
}

// MarkPaid records a payment on planID's installment.
func (mc *MigrationsClient) MarkPaid(ctx context.Context, planID int64, req MarkPaidRequest) error {
	path := fmt.Sprintf("/api/v1/plans/%d/installments/pay", planID)
	return mc.client.do(ctx, http.MethodPost, path, req, nil)
}

// UnmarkPaid reverts a recorded payment on one installment.
func (mc *MigrationsClient) UnmarkPaid(ctx context.Context, installmentID int64, reason string) error {
	body := map[string]string{}
	if reason != "" {
		body["reason"] = reason
	}
	path := fmt.Sprintf("/api/v1/installments/%d/unmark-paid", installmentID)
	return mc.client.do(ctx, http.MethodPost, path, body, nil)
}

// PostponeRequest moves an unpaid installment's due date forward.
type PostponeRequest struct {
	PlanID int64     `json:"plan_id"`
	Seq    int       `json:"seq"`
	NewDue time.Time `json:"new_due"`
}

// Postpone moves one installment's due date.
func (mc *MigrationsClient) Postpone(ctx context.Context, req PostponeRequest) error {
	path := fmt.Sprintf("/api/v1/plans/%d/installments/postpone", req.PlanID)
	return mc.client.do(ctx, http.MethodPost, path, req, nil)
}

// ConfirmDecay marks a decay-eligible plan as DECADUTA.  With force set the
// eligibility window check is skipped.
func (mc *MigrationsClient) ConfirmDecay(ctx context.Context, planID int64, force bool) error {
	body := map[string]bool{}
	if force {
		body["force"] = true
	}
	path := fmt.Sprintf("/api/v1/plans/%d/confirm-decay", planID)
	return mc.client.do(ctx, http.MethodPost, path, body, nil)
}
