package migration

import (
	"context"

	"github.com/fiscaldesk/rateations/internal/domain/plan"
	"github.com/fiscaldesk/rateations/internal/infrastructure/monitoring/logging"
	"github.com/fiscaldesk/rateations/pkg/errors"
)

// snapshotAmounts derives the two sides of a surcharge computation: the
// withholding plan's unpaid residual and the portal plan's total.  The portal
// total prefers the plan header amount and falls back to the installment sum
// when the header was never filled in.
func (s *Service) snapshotAmounts(ctx context.Context, repo plan.Repository, withholding, portal *plan.Plan) (residual, portalTotal int64, err error) {
	wInstallments, err := repo.ListInstallmentsByPlan(ctx, withholding.ID)
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load withholding installments")
	}
	for _, inst := range wInstallments {
		if !inst.Paid {
			residual += inst.AmountCents
		}
	}

	portalTotal = portal.TotalCents
	if portalTotal == 0 {
		pInstallments, err := repo.ListInstallmentsByPlan(ctx, portal.ID)
		if err != nil {
			return 0, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load portal installments")
		}
		for _, inst := range pInstallments {
			portalTotal += inst.AmountCents
		}
	}
	return residual, portalTotal, nil
}

// PreviewSurcharge computes the surcharge quote without touching anything.
// It may be called any number of times; two calls over unchanged data return
// identical deltas and create no link.
func (s *Service) PreviewSurcharge(ctx context.Context, withholdingPlanID, portalPlanID int64) (*plan.SurchargeQuote, error) {
	withholding, err := s.fetchOwnedPlan(ctx, s.repo, withholdingPlanID, "")
	if err != nil {
		return nil, err
	}
	portal, err := s.fetchOwnedPlan(ctx, s.repo, portalPlanID, "")
	if err != nil {
		return nil, err
	}

	residual, portalTotal, err := s.snapshotAmounts(ctx, s.repo, withholding, portal)
	if err != nil {
		return nil, err
	}
	q := plan.QuoteSurcharge(residual, portalTotal)
	return &q, nil
}

// LinkSurchargeRequest folds a decayed withholding plan into a portal plan.
type LinkSurchargeRequest struct {
	WithholdingPlanID int64  `json:"withholding_plan_id"`
	PortalPlanID      int64  `json:"portal_plan_id"`
	Reason            string `json:"reason,omitempty"`
	OwnerID           string `json:"-"`
}

// LinkSurchargeResult reports the stored link and whether an older link was
// replaced.
type LinkSurchargeResult struct {
	LinkID         int64  `json:"link_id"`
	SurchargeCents int64  `json:"surcharge_cents"`
	Action         string `json:"action"`
}

// LinkWithSurcharge runs workflow (c): the snapshot amounts and the floored
// surcharge are stored on a fresh link.  The link is unique per withholding
// plan; re-linking to a different portal plan deletes the old link first and
// reports "updated".  Linking the already linked pair again is a no-op
// conflict.
func (s *Service) LinkWithSurcharge(ctx context.Context, req *LinkSurchargeRequest) (*LinkSurchargeResult, error) {
	if req == nil {
		return nil, errors.New(errors.ErrCodeValidation, "request must not be nil")
	}
	if req.WithholdingPlanID == req.PortalPlanID {
		return nil, errors.New(errors.ErrCodeSameSourceTarget, "withholding and portal plan must differ")
	}

	now := s.now()
	result := &LinkSurchargeResult{Action: "created"}
	err := s.repo.WithTx(ctx, func(tx plan.Repository) error {
		withholding, err := s.fetchOwnedPlan(ctx, tx, req.WithholdingPlanID, req.OwnerID)
		if err != nil {
			return err
		}
		if withholding.Kind != plan.KindWithholding {
			return errors.Newf(errors.ErrCodePlanKindInvalid, "plan %d is %s, expected %s", withholding.ID, withholding.Kind, plan.KindWithholding)
		}
		if withholding.Status != plan.StatusDecayed && withholding.Status != plan.StatusInterrupted {
			return errors.Newf(errors.ErrCodePlanStatusInvalid, "plan %d is %s, only a decayed or interrupted plan can be folded in", withholding.ID, withholding.Status)
		}
		portal, err := s.fetchOwnedPlan(ctx, tx, req.PortalPlanID, req.OwnerID)
		if err != nil {
			return err
		}
		if portal.Kind != plan.KindPortal {
			return errors.Newf(errors.ErrCodePlanKindInvalid, "plan %d is %s, expected %s", portal.ID, portal.Kind, plan.KindPortal)
		}

		existing, err := tx.GetSurchargeLinkByWithholding(ctx, withholding.ID)
		if err != nil && !errors.IsNotFound(err) {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load existing link")
		}
		if existing != nil {
			if existing.PortalPlanID == portal.ID {
				return errors.Newf(errors.ErrCodeLinkConflict, "plan %d is already linked to portal plan %d", withholding.ID, portal.ID)
			}
			if err := tx.DeleteSurchargeLink(ctx, withholding.ID); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to replace existing link")
			}
			result.Action = "updated"
		}

		residual, portalTotal, err := s.snapshotAmounts(ctx, tx, withholding, portal)
		if err != nil {
			return err
		}
		quote := plan.QuoteSurcharge(residual, portalTotal)
		link := &plan.SurchargeLink{
			WithholdingPlanID: withholding.ID,
			PortalPlanID:      portal.ID,
			ResidualCents:     quote.ResidualCents,
			PortalTotalCents:  quote.PortalTotalCents,
			SurchargeCents:    plan.SurchargeFromQuote(quote),
			Reason:            req.Reason,
			CreatedAt:         now,
		}
		if err := tx.CreateSurchargeLink(ctx, link); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create surcharge link")
		}
		result.LinkID = link.ID
		result.SurchargeCents = link.SurchargeCents
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("surcharge link stored",
		logging.Int64("withholding_plan_id", req.WithholdingPlanID),
		logging.Int64("portal_plan_id", req.PortalPlanID),
		logging.Int64("surcharge_cents", result.SurchargeCents),
		logging.String("action", result.Action))
	s.afterMutation(ctx, plan.ActionSurchargeLinked, req.WithholdingPlanID, req.PortalPlanID)
	return result, nil
}

// UnlinkSurchargeRequest dissolves the surcharge link of a withholding plan.
type UnlinkSurchargeRequest struct {
	WithholdingPlanID int64  `json:"withholding_plan_id"`
	Reason            string `json:"reason,omitempty"`
	OwnerID           string `json:"-"`
}

// UnlinkSurchargeResult reports whether the withholding plan went back to
// ACTIVE.
type UnlinkSurchargeResult struct {
	Restored bool `json:"restored"`
}

// UnlinkSurcharge deletes the link and restores the withholding plan to its
// active state.
func (s *Service) UnlinkSurcharge(ctx context.Context, req *UnlinkSurchargeRequest) (*UnlinkSurchargeResult, error) {
	if req == nil {
		return nil, errors.New(errors.ErrCodeValidation, "request must not be nil")
	}

	var portalID int64
	result := &UnlinkSurchargeResult{}
	err := s.repo.WithTx(ctx, func(tx plan.Repository) error {
		withholding, err := s.fetchOwnedPlan(ctx, tx, req.WithholdingPlanID, req.OwnerID)
		if err != nil {
			return err
		}
		link, err := tx.GetSurchargeLinkByWithholding(ctx, withholding.ID)
		if err != nil {
			if errors.IsNotFound(err) {
				return errors.Newf(errors.ErrCodeLinkNotFound, "plan %d has no surcharge link", withholding.ID)
			}
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load surcharge link")
		}
		portalID = link.PortalPlanID

		if err := tx.DeleteSurchargeLink(ctx, withholding.ID); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete surcharge link")
		}
		if withholding.CanTransition(plan.StatusActive) {
			if err := tx.UpdatePlanStatus(ctx, withholding.ID, plan.StatusActive, nil, nil); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to restore plan")
			}
			result.Restored = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("surcharge link removed",
		logging.Int64("withholding_plan_id", req.WithholdingPlanID),
		logging.Bool("restored", result.Restored))
	s.afterMutation(ctx, plan.ActionSurchargeUnlinked, req.WithholdingPlanID, portalID)
	return result, nil
}
