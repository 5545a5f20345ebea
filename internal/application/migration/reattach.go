package migration

import (
	"context"

	"github.com/fiscaldesk/rateations/internal/domain/plan"
	"github.com/fiscaldesk/rateations/internal/infrastructure/monitoring/logging"
	"github.com/fiscaldesk/rateations/pkg/errors"
)

// AttachPlanRequest folds a portal plan into one or more amnesty-readmission
// plans as a whole.
type AttachPlanRequest struct {
	PortalPlanID  int64   `json:"portal_plan_id"`
	TargetPlanIDs []int64 `json:"target_plan_ids"`
	Note          string  `json:"note,omitempty"`
	OwnerID       string  `json:"-"`
}

// LinkResult reports one created cross-plan link.
type LinkResult struct {
	LinkID            int64 `json:"link_id"`
	ReadmissionPlanID int64 `json:"readmission_plan_id"`
}

// AttachPlanToTargets runs workflow (b): the portal plan is interrupted with
// its metadata set and one cross-plan link is created per target, all in one
// transaction.  Attaching further targets to an already interrupted plan only
// adds links.
func (s *Service) AttachPlanToTargets(ctx context.Context, req *AttachPlanRequest) ([]LinkResult, error) {
	if req == nil {
		return nil, errors.New(errors.ErrCodeValidation, "request must not be nil")
	}
	if len(req.TargetPlanIDs) == 0 {
		return nil, errors.New(errors.ErrCodeEmptySelection, "at least one readmission plan must be selected")
	}
	targetIDs, err := uniquePositive(req.TargetPlanIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range targetIDs {
		if id == req.PortalPlanID {
			return nil, errors.New(errors.ErrCodeSameSourceTarget, "a plan cannot be attached to itself")
		}
	}

	now := s.now()
	var results []LinkResult
	err = s.repo.WithTx(ctx, func(tx plan.Repository) error {
		portal, err := s.fetchOwnedPlan(ctx, tx, req.PortalPlanID, req.OwnerID)
		if err != nil {
			return err
		}
		if portal.Kind != plan.KindPortal {
			return errors.Newf(errors.ErrCodePlanKindInvalid, "plan %d is %s, expected %s", portal.ID, portal.Kind, plan.KindPortal)
		}

		for _, id := range targetIDs {
			target, err := s.fetchOwnedPlan(ctx, tx, id, req.OwnerID)
			if err != nil {
				return err
			}
			if target.Kind != plan.KindAmnestyReadmission {
				return errors.Newf(errors.ErrCodePlanKindInvalid, "target plan %d is %s, expected %s", target.ID, target.Kind, plan.KindAmnestyReadmission)
			}
		}

		existing, err := tx.ListReadmissionLinksByPortal(ctx, portal.ID)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load existing links")
		}
		linked := make(map[int64]bool, len(existing))
		for _, l := range existing {
			linked[l.ReadmissionPlanID] = true
		}
		for _, id := range targetIDs {
			if linked[id] {
				return errors.Newf(errors.ErrCodeLinkConflict, "plan %d is already attached to readmission plan %d", portal.ID, id)
			}
		}

		if portal.Status != plan.StatusInterrupted {
			if err := portal.Interrupt(targetIDs[0], req.Note, now); err != nil {
				return errors.Wrap(err, errors.ErrCodePlanStatusInvalid, "plan cannot be interrupted")
			}
			if err := tx.UpdatePlanStatus(ctx, portal.ID, plan.StatusInterrupted, portal.Interruption, nil); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to interrupt plan")
			}
		}

		for _, id := range targetIDs {
			link := &plan.ReadmissionLink{
				PortalPlanID:      portal.ID,
				ReadmissionPlanID: id,
				Note:              req.Note,
				CreatedAt:         now,
			}
			if err := tx.CreateReadmissionLink(ctx, link); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create cross-plan link")
			}
			results = append(results, LinkResult{LinkID: link.ID, ReadmissionPlanID: id})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("plan attached",
		logging.Int64("portal_plan_id", req.PortalPlanID),
		logging.Int("target_count", len(targetIDs)))
	s.afterMutation(ctx, plan.ActionPlanAttached, append([]int64{req.PortalPlanID}, targetIDs...)...)
	return results, nil
}

// DetachPlanRequest removes cross-plan links.  An empty TargetPlanIDs set
// removes every link of the portal plan.
type DetachPlanRequest struct {
	PortalPlanID  int64   `json:"portal_plan_id"`
	TargetPlanIDs []int64 `json:"target_plan_ids,omitempty"`
	OwnerID       string  `json:"-"`
}

// DetachResult reports whether the portal plan was released back to ACTIVE.
type DetachResult struct {
	Unlocked bool `json:"unlocked"`
}

// DetachPlanLinks removes the selected links.  The portal plan reverts to
// ACTIVE only when zero links remain after the removal; the decision is
// always taken from the post-removal count so a partial detach leaves the
// interruption in place.
func (s *Service) DetachPlanLinks(ctx context.Context, req *DetachPlanRequest) (*DetachResult, error) {
	if req == nil {
		return nil, errors.New(errors.ErrCodeValidation, "request must not be nil")
	}
	targetIDs, err := uniquePositive(req.TargetPlanIDs)
	if err != nil {
		return nil, err
	}

	result := &DetachResult{}
	err = s.repo.WithTx(ctx, func(tx plan.Repository) error {
		portal, err := s.fetchOwnedPlan(ctx, tx, req.PortalPlanID, req.OwnerID)
		if err != nil {
			return err
		}

		removed, err := tx.DeleteReadmissionLinks(ctx, portal.ID, targetIDs)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to remove cross-plan links")
		}
		if removed == 0 {
			return errors.Newf(errors.ErrCodeLinkNotFound, "plan %d has no matching links to remove", portal.ID)
		}

		remaining, err := tx.CountReadmissionLinks(ctx, portal.ID)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count remaining links")
		}
		if remaining == 0 && portal.Status == plan.StatusInterrupted {
			if err := tx.UpdatePlanStatus(ctx, portal.ID, plan.StatusActive, nil, nil); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to reactivate plan")
			}
			result.Unlocked = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("plan links detached",
		logging.Int64("portal_plan_id", req.PortalPlanID),
		logging.Bool("unlocked", result.Unlocked))
	s.afterMutation(ctx, plan.ActionPlanDetached, append([]int64{req.PortalPlanID}, targetIDs...)...)
	return result, nil
}
