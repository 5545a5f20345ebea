package migration

import (
	"context"
	"time"

	"github.com/fiscaldesk/rateations/internal/domain/plan"
	"github.com/fiscaldesk/rateations/internal/infrastructure/monitoring/logging"
	"github.com/fiscaldesk/rateations/pkg/errors"
)

// MarkPaidRequest settles one installment, addressed by plan and sequence
// number the way the paper forms do.
type MarkPaidRequest struct {
	PlanID        int64            `json:"plan_id"`
	Seq           int              `json:"seq"`
	PaidDate      time.Time        `json:"paid_date"`
	Mode          plan.PaymentMode `json:"mode,omitempty"`
	PenaltyCents  int64            `json:"penalty_cents,omitempty"`
	InterestCents int64            `json:"interest_cents,omitempty"`
	OwnerID       string           `json:"-"`
}

// MarkInstallmentPaid records a payment.  An already paid installment is a
// conflict; paying one under a decayed plan is refused because the benefit is
// gone.  When every installment of the plan ends up paid the plan itself
// moves to COMPLETED in the same transaction.
func (s *Service) MarkInstallmentPaid(ctx context.Context, req *MarkPaidRequest) error {
	if req == nil {
		return errors.New(errors.ErrCodeValidation, "request must not be nil")
	}
	if req.Seq < 1 {
		return errors.New(errors.ErrCodeValidation, "installment seq must be positive")
	}
	if req.PaidDate.IsZero() {
		return errors.New(errors.ErrCodeValidation, "paid date is required")
	}
	if req.PenaltyCents < 0 || req.InterestCents < 0 {
		return errors.New(errors.ErrCodeValidation, "penalty and interest must not be negative")
	}
	mode := req.Mode
	if mode == "" {
		mode = plan.PayModeOrdinary
		if req.PenaltyCents > 0 || req.InterestCents > 0 {
			mode = plan.PayModePenaltyAdjusted
		}
	}

	err := s.repo.WithTx(ctx, func(tx plan.Repository) error {
		p, err := s.fetchOwnedPlan(ctx, tx, req.PlanID, req.OwnerID)
		if err != nil {
			return err
		}
		if p.IsDecayed() {
			return errors.Newf(errors.ErrCodePlanStatusInvalid, "plan %d is decayed, installments can no longer be paid", p.ID)
		}

		inst, err := tx.GetInstallmentBySeq(ctx, p.ID, req.Seq)
		if err != nil {
			if errors.IsNotFound(err) {
				return errors.Newf(errors.ErrCodeInstallmentNotFound, "plan %d has no installment %d", p.ID, req.Seq)
			}
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load installment")
		}
		if inst.Paid {
			return errors.Newf(errors.ErrCodeInstallmentAlreadyPaid, "installment %d/%d is already paid", p.ID, req.Seq)
		}

		paidDate := req.PaidDate
		total := inst.AmountCents + req.PenaltyCents + req.InterestCents
		if err := tx.UpdateInstallmentPayment(ctx, inst.ID, true, &paidDate, mode, req.PenaltyCents, req.InterestCents, total); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to record payment")
		}

		all, err := tx.ListInstallmentsByPlan(ctx, p.ID)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to reload installments")
		}
		unpaid := 0
		for _, other := range all {
			if other.ID != inst.ID && !other.Paid {
				unpaid++
			}
		}
		if unpaid == 0 && p.CanTransition(plan.StatusCompleted) {
			if err := tx.UpdatePlanStatus(ctx, p.ID, plan.StatusCompleted, nil, nil); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to complete plan")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("installment paid",
		logging.Int64("plan_id", req.PlanID),
		logging.Int("seq", req.Seq),
		logging.String("mode", string(mode)))
	s.afterMutation(ctx, plan.ActionInstallmentPaid, req.PlanID)
	return nil
}

// UnmarkPaidRequest reverts a recorded payment, addressed by installment id
// because the caller is correcting a specific row, not re-running a form.
type UnmarkPaidRequest struct {
	InstallmentID int64  `json:"installment_id"`
	Reason        string `json:"reason,omitempty"`
	OwnerID       string `json:"-"`
}

// UnmarkInstallmentPaid clears the payment fields of a paid installment.  A
// COMPLETED plan drops back to ACTIVE since it has an unpaid row again.
func (s *Service) UnmarkInstallmentPaid(ctx context.Context, req *UnmarkPaidRequest) error {
	if req == nil {
		return errors.New(errors.ErrCodeValidation, "request must not be nil")
	}
	if req.InstallmentID <= 0 {
		return errors.New(errors.ErrCodeValidation, "installment id must be positive")
	}

	var planID int64
	err := s.repo.WithTx(ctx, func(tx plan.Repository) error {
		inst, err := tx.GetInstallment(ctx, req.InstallmentID)
		if err != nil {
			if errors.IsNotFound(err) {
				return errors.Newf(errors.ErrCodeInstallmentNotFound, "installment %d not found", req.InstallmentID)
			}
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load installment")
		}
		if !inst.Paid {
			return errors.Newf(errors.ErrCodeInstallmentNotPaid, "installment %d is not paid", req.InstallmentID)
		}
		p, err := s.fetchOwnedPlan(ctx, tx, inst.PlanID, req.OwnerID)
		if err != nil {
			return err
		}
		planID = p.ID

		if err := tx.UpdateInstallmentPayment(ctx, inst.ID, false, nil, "", 0, 0, 0); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to revert payment")
		}
		if p.Status == plan.StatusCompleted {
			if err := tx.UpdatePlanStatus(ctx, p.ID, plan.StatusActive, nil, nil); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to reopen plan")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("installment payment reverted",
		logging.Int64("installment_id", req.InstallmentID),
		logging.String("reason", req.Reason))
	s.afterMutation(ctx, plan.ActionInstallmentUnpaid, planID)
	return nil
}

// PostponeRequest moves an installment's due date forward.
type PostponeRequest struct {
	PlanID  int64     `json:"plan_id"`
	Seq     int       `json:"seq"`
	NewDue  time.Time `json:"new_due"`
	OwnerID string    `json:"-"`
}

// PostponeInstallment rewrites the due date.  The effective status keeps
// reading off the due date alone, so the postponed row stays OPEN until the
// new date passes.
func (s *Service) PostponeInstallment(ctx context.Context, req *PostponeRequest) error {
	if req == nil {
		return errors.New(errors.ErrCodeValidation, "request must not be nil")
	}
	if req.NewDue.IsZero() {
		return errors.New(errors.ErrCodeValidation, "new due date is required")
	}

	err := s.repo.WithTx(ctx, func(tx plan.Repository) error {
		p, err := s.fetchOwnedPlan(ctx, tx, req.PlanID, req.OwnerID)
		if err != nil {
			return err
		}
		inst, err := tx.GetInstallmentBySeq(ctx, p.ID, req.Seq)
		if err != nil {
			if errors.IsNotFound(err) {
				return errors.Newf(errors.ErrCodeInstallmentNotFound, "plan %d has no installment %d", p.ID, req.Seq)
			}
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load installment")
		}
		if err := inst.Postpone(req.NewDue); err != nil {
			return errors.Wrap(err, errors.ErrCodeValidation, "postponement rejected")
		}
		return tx.UpdateInstallmentDueDate(ctx, inst.ID, *inst.DueDate, true)
	})
	if err != nil {
		return err
	}

	s.logger.Info("installment postponed",
		logging.Int64("plan_id", req.PlanID),
		logging.Int("seq", req.Seq))
	s.afterMutation(ctx, plan.ActionInstallmentPostponed, req.PlanID)
	return nil
}

// ConfirmDecayRequest marks a withholding plan decayed.
type ConfirmDecayRequest struct {
	PlanID  int64  `json:"plan_id"`
	Force   bool   `json:"force,omitempty"`
	OwnerID string `json:"-"`
}

// ConfirmDecay is the explicit transition behind the pre-decay predicate.
// Unless forced, the plan must actually be eligible: its unpaid run must have
// drifted past the configured threshold.
func (s *Service) ConfirmDecay(ctx context.Context, req *ConfirmDecayRequest) error {
	if req == nil {
		return errors.New(errors.ErrCodeValidation, "request must not be nil")
	}

	now := s.now()
	today := plan.Midnight(now, s.loc)
	err := s.repo.WithTx(ctx, func(tx plan.Repository) error {
		p, err := s.fetchOwnedPlan(ctx, tx, req.PlanID, req.OwnerID)
		if err != nil {
			return err
		}
		if p.Kind != plan.KindWithholding {
			return errors.Newf(errors.ErrCodePlanKindInvalid, "plan %d is %s, only %s plans decay by confirmation", p.ID, p.Kind, plan.KindWithholding)
		}
		if !req.Force {
			installments, err := tx.ListInstallmentsByPlan(ctx, p.ID)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load installments")
			}
			kpi := plan.AggregatePlan(*p, installments, s.opts, today, s.loc)
			if kpi.Recovery == nil || !kpi.Recovery.PreDecayEligible {
				return errors.Newf(errors.ErrCodeDecayNotEligible, "plan %d is not eligible for decay confirmation", p.ID)
			}
		}
		if err := p.ConfirmDecay(now); err != nil {
			return errors.Wrap(err, errors.ErrCodePlanStatusInvalid, "decay rejected")
		}
		return tx.UpdatePlanStatus(ctx, p.ID, plan.StatusDecayed, nil, p.DecayedAt)
	})
	if err != nil {
		return err
	}

	s.logger.Info("plan decay confirmed", logging.Int64("plan_id", req.PlanID))
	s.afterMutation(ctx, plan.ActionDecayConfirmed, req.PlanID)
	return nil
}
