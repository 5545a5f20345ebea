package migration

import (
	"context"
	"time"

	"github.com/fiscaldesk/rateations/internal/domain/plan"
	"github.com/fiscaldesk/rateations/internal/infrastructure/monitoring/logging"
	"github.com/fiscaldesk/rateations/pkg/errors"
)

// ScheduleSpec describes an evenly spaced schedule to be generated: count
// installments of amountCents each, the first due at FirstDue.
type ScheduleSpec struct {
	FirstDue    time.Time      `json:"first_due"`
	Frequency   plan.Frequency `json:"frequency"`
	Count       int            `json:"count"`
	AmountCents int64          `json:"amount_cents"`
}

// CreatePlanRequest opens a new plan.  Exactly one of Schedule or
// Installments supplies the payment schedule: Schedule generates it,
// Installments takes an explicit list (seq numbers 1..n, amounts positive).
type CreatePlanRequest struct {
	Number       string             `json:"number"`
	Kind         plan.Kind          `json:"kind"`
	TaxpayerID   string             `json:"taxpayer_id,omitempty"`
	Note         string             `json:"note,omitempty"`
	Schedule     *ScheduleSpec      `json:"schedule,omitempty"`
	Installments []plan.Installment `json:"installments,omitempty"`
	OwnerID      string             `json:"-"`
}

// CreatePlan persists a new plan together with its full installment schedule
// in one transaction.  The plan opens ACTIVE and its total is the sum of the
// installment amounts, never a caller-supplied figure.
func (s *Service) CreatePlan(ctx context.Context, req *CreatePlanRequest) (*plan.Plan, []plan.Installment, error) {
	if req == nil {
		return nil, nil, errors.New(errors.ErrCodeValidation, "request must not be nil")
	}
	if req.Number == "" {
		return nil, nil, errors.New(errors.ErrCodeValidation, "plan number is required")
	}
	if !plan.ValidKind(req.Kind) {
		return nil, nil, errors.Newf(errors.ErrCodeValidation, "unknown plan kind %q", req.Kind)
	}
	if (req.Schedule == nil) == (len(req.Installments) == 0) {
		return nil, nil, errors.New(errors.ErrCodeValidation, "exactly one of schedule or installments is required")
	}

	// The total must be on the row from the first insert, so both schedule
	// shapes are priced before the transaction opens.
	var total int64
	if req.Schedule != nil {
		if req.Schedule.Count <= 0 || req.Schedule.AmountCents <= 0 {
			return nil, nil, errors.New(errors.ErrCodeScheduleInvalid, "schedule count and amount must be positive")
		}
		total = int64(req.Schedule.Count) * req.Schedule.AmountCents
	} else {
		for _, inst := range req.Installments {
			total += inst.AmountCents
		}
	}

	p := &plan.Plan{
		Number:     req.Number,
		Kind:       req.Kind,
		TaxpayerID: req.TaxpayerID,
		OwnerID:    req.OwnerID,
		TotalCents: total,
		Status:     plan.StatusActive,
		Note:       req.Note,
	}

	var installments []plan.Installment
	err := s.repo.WithTx(ctx, func(tx plan.Repository) error {
		if err := tx.CreatePlan(ctx, p); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create plan")
		}

		if req.Schedule != nil {
			spec := req.Schedule
			firstDue := plan.Midnight(spec.FirstDue, s.loc)
			generated, err := plan.GenerateSchedule(p.ID, firstDue, spec.Frequency, spec.Count, spec.AmountCents)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeScheduleInvalid, "schedule rejected")
			}
			installments = generated
		} else {
			installments = make([]plan.Installment, len(req.Installments))
			copy(installments, req.Installments)
			for i := range installments {
				installments[i].PlanID = p.ID
				if installments[i].DueDate != nil {
					due := plan.Midnight(*installments[i].DueDate, s.loc)
					installments[i].DueDate = &due
				}
			}
			if err := plan.ValidateSchedule(p.ID, installments); err != nil {
				return errors.Wrap(err, errors.ErrCodeScheduleInvalid, "schedule rejected")
			}
		}

		rows := make([]*plan.Installment, len(installments))
		for i := range installments {
			rows[i] = &installments[i]
		}
		if err := tx.BatchCreateInstallments(ctx, rows); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create installments")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("plan created",
		logging.Int64("plan_id", p.ID),
		logging.String("number", p.Number),
		logging.String("kind", string(p.Kind)),
		logging.Int64("total_cents", p.TotalCents))
	s.afterMutation(ctx, plan.ActionPlanCreated, p.ID)
	return p, installments, nil
}
