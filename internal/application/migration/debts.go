package migration

import (
	"context"

	"github.com/fiscaldesk/rateations/internal/domain/plan"
	"github.com/fiscaldesk/rateations/internal/infrastructure/monitoring/logging"
	"github.com/fiscaldesk/rateations/pkg/errors"
)

// MigrateDebtsRequest moves a set of debts from a portal plan into an
// amnesty-readmission plan.  OwnerID, when set, must match both plans.
type MigrateDebtsRequest struct {
	SourcePlanID int64   `json:"source_plan_id"`
	DebtIDs      []int64 `json:"debt_ids"`
	TargetPlanID int64   `json:"target_plan_id"`
	Note         string  `json:"note,omitempty"`
	OwnerID      string  `json:"-"`
}

// MigrateDebts runs workflow (a): each selected debt's ACTIVE link under the
// source flips to MIGRATED_OUT and a fresh ACTIVE link is created under the
// target, flagged migrated-in for audit.  The moved ids merge into the
// source plan's record, so sequential migrations off the same plan stay
// reversible together.  All of it commits in one transaction or not at all.
func (s *Service) MigrateDebts(ctx context.Context, req *MigrateDebtsRequest) error {
	if req == nil {
		return errors.New(errors.ErrCodeValidation, "request must not be nil")
	}
	if len(req.DebtIDs) == 0 {
		return errors.New(errors.ErrCodeEmptySelection, "at least one debt must be selected")
	}
	if req.SourcePlanID == req.TargetPlanID {
		return errors.New(errors.ErrCodeSameSourceTarget, "source and target plan must differ")
	}
	debtIDs, err := uniquePositive(req.DebtIDs)
	if err != nil {
		return err
	}

	now := s.now()
	err = s.repo.WithTx(ctx, func(tx plan.Repository) error {
		source, err := s.fetchOwnedPlan(ctx, tx, req.SourcePlanID, req.OwnerID)
		if err != nil {
			return err
		}
		target, err := s.fetchOwnedPlan(ctx, tx, req.TargetPlanID, req.OwnerID)
		if err != nil {
			return err
		}
		if target.Kind != plan.KindAmnestyReadmission {
			return errors.Newf(errors.ErrCodePlanKindInvalid, "target plan %d is %s, expected %s", target.ID, target.Kind, plan.KindAmnestyReadmission)
		}

		links, err := tx.ListDebtLinksByPlan(ctx, source.ID)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load debt links")
		}
		active := make(map[int64]bool)
		for _, id := range plan.ActiveDebtIDs(links) {
			active[id] = true
		}
		for _, id := range debtIDs {
			if !active[id] {
				return errors.Newf(errors.ErrCodeNoActiveDebts, "debt %d has no active link under plan %d", id, source.ID)
			}
		}

		for _, id := range debtIDs {
			if err := tx.UpdateDebtLinkStatus(ctx, source.ID, id, plan.LinkMigratedOut, &now); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to flag source link")
			}
			link := &plan.PlanDebtLink{
				PlanID:     target.ID,
				DebtID:     id,
				Status:     plan.LinkActive,
				MigratedIn: true,
				MigratedAt: &now,
				CreatedAt:  now,
			}
			if err := tx.CreateDebtLink(ctx, link); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create target link")
			}
		}

		recorded := source.MigratedDebtIDs
		for _, id := range debtIDs {
			recorded = appendUnique(recorded, id)
		}
		if err := tx.SetMigratedDebtIDs(ctx, source.ID, recorded); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to record migrated debt ids")
		}
		if req.Note != "" {
			if err := tx.UpdatePlanNote(ctx, source.ID, req.Note); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to record migration note")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("debts migrated",
		logging.Int64("source_plan_id", req.SourcePlanID),
		logging.Int64("target_plan_id", req.TargetPlanID),
		logging.Int("debt_count", len(debtIDs)))
	s.afterMutation(ctx, plan.ActionDebtsMigrated, req.SourcePlanID, req.TargetPlanID)
	return nil
}

// RollbackDebtMigrationRequest reverses migrations recorded on the source
// plan.  DebtIDs optionally restricts the rollback to a subset of the record;
// when empty the whole record is reversed.  The working set always derives
// from the plan's own record so retries stay idempotent.
type RollbackDebtMigrationRequest struct {
	SourcePlanID int64   `json:"source_plan_id"`
	DebtIDs      []int64 `json:"debt_ids,omitempty"`
	OwnerID      string  `json:"-"`
}

// RollbackDebtMigration restores the pre-migration link state: the target
// links created by the migration are removed and the source links flip back
// to ACTIVE.  Reversed ids leave the record; a partial rollback keeps the
// rest reversible later.  A source plan with no recorded migration is a
// no-op, which is what makes a retried rollback safe.
func (s *Service) RollbackDebtMigration(ctx context.Context, req *RollbackDebtMigrationRequest) error {
	if req == nil {
		return errors.New(errors.ErrCodeValidation, "request must not be nil")
	}
	callerIDs, err := uniquePositive(req.DebtIDs)
	if err != nil {
		return err
	}

	var touched []int64
	err = s.repo.WithTx(ctx, func(tx plan.Repository) error {
		source, err := s.fetchOwnedPlan(ctx, tx, req.SourcePlanID, req.OwnerID)
		if err != nil {
			return err
		}
		recorded := source.MigratedDebtIDs
		if len(recorded) == 0 {
			// Nothing to undo; a repeated rollback lands here.
			return nil
		}

		workset := recorded
		if len(callerIDs) > 0 {
			recordedSet := make(map[int64]bool, len(recorded))
			for _, id := range recorded {
				recordedSet[id] = true
			}
			for _, id := range callerIDs {
				if !recordedSet[id] {
					return errors.Newf(errors.ErrCodeRollbackMismatch, "debt %d is not part of the recorded migration", id)
				}
			}
			workset = callerIDs
		}

		touched = append(touched, source.ID)
		for _, id := range workset {
			link, err := tx.GetActiveLinkByDebt(ctx, id)
			if err != nil {
				if errors.IsNotFound(err) {
					return errors.Newf(errors.ErrCodeLinkNotFound, "debt %d has no active link to reverse", id)
				}
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to locate migrated link")
			}
			if link.PlanID == source.ID {
				return errors.Newf(errors.ErrCodeRollbackMismatch, "debt %d is already active under plan %d", id, source.ID)
			}
			if err := tx.DeleteDebtLink(ctx, link.PlanID, id); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to remove target link")
			}
			if err := tx.UpdateDebtLinkStatus(ctx, source.ID, id, plan.LinkActive, nil); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to restore source link")
			}
			touched = appendUnique(touched, link.PlanID)
		}

		reversed := make(map[int64]bool, len(workset))
		for _, id := range workset {
			reversed[id] = true
		}
		var remaining []int64
		for _, id := range recorded {
			if !reversed[id] {
				remaining = append(remaining, id)
			}
		}
		return tx.SetMigratedDebtIDs(ctx, source.ID, remaining)
	})
	if err != nil {
		return err
	}
	if len(touched) == 0 {
		return nil
	}

	s.logger.Info("debt migration rolled back",
		logging.Int64("source_plan_id", req.SourcePlanID),
		logging.Int("plan_count", len(touched)))
	s.afterMutation(ctx, plan.ActionMigrationRolledBack, touched...)
	return nil
}

func appendUnique(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
