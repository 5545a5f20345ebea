package migration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscaldesk/rateations/internal/domain/plan"
	"github.com/fiscaldesk/rateations/pkg/errors"
)

func seedPayablePlan(f *fixture) *plan.Plan {
	p := f.repo.addPlan(plan.Plan{ID: 1, Kind: plan.KindPortal, Status: plan.StatusActive, OwnerID: "alice"})
	f.repo.addInstallment(plan.Installment{PlanID: p.ID, Seq: 1, AmountCents: 10000, DueDate: datePtr(day(2026, time.February, 28))})
	f.repo.addInstallment(plan.Installment{PlanID: p.ID, Seq: 2, AmountCents: 10000, DueDate: datePtr(day(2026, time.March, 31))})
	return p
}

func TestMarkInstallmentPaid(t *testing.T) {
	ctx := context.Background()
	now := day(2026, time.March, 10)

	t.Run("records the payment", func(t *testing.T) {
		f := newFixture(now)
		p := seedPayablePlan(f)

		err := f.svc.MarkInstallmentPaid(ctx, &MarkPaidRequest{
			PlanID: p.ID, Seq: 1, PaidDate: day(2026, time.March, 5), OwnerID: "alice",
		})
		require.NoError(t, err)

		inst, err := f.repo.GetInstallmentBySeq(ctx, p.ID, 1)
		require.NoError(t, err)
		assert.True(t, inst.Paid)
		require.NotNil(t, inst.PaidDate)
		assert.Equal(t, plan.PayModeOrdinary, inst.PayMode)
		assert.Equal(t, int64(10000), inst.TotalPaidWithPenaltyC)
		assert.Equal(t, plan.ActionInstallmentPaid, f.bus.lastAction())
	})

	t.Run("a penalty implies the adjusted mode and the grossed-up total", func(t *testing.T) {
		f := newFixture(now)
		p := seedPayablePlan(f)

		err := f.svc.MarkInstallmentPaid(ctx, &MarkPaidRequest{
			PlanID: p.ID, Seq: 1, PaidDate: now, PenaltyCents: 500, InterestCents: 120, OwnerID: "alice",
		})
		require.NoError(t, err)

		inst, err := f.repo.GetInstallmentBySeq(ctx, p.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, plan.PayModePenaltyAdjusted, inst.PayMode)
		assert.Equal(t, int64(10620), inst.TotalPaidWithPenaltyC)

		res := plan.Resolve(*inst, plan.StatusActive, now, rome)
		assert.Equal(t, plan.StatusPaidWithPenalty, res.EffectiveStatus)
	})

	t.Run("paying the last installment completes the plan", func(t *testing.T) {
		f := newFixture(now)
		p := seedPayablePlan(f)

		require.NoError(t, f.svc.MarkInstallmentPaid(ctx, &MarkPaidRequest{PlanID: p.ID, Seq: 1, PaidDate: now, OwnerID: "alice"}))
		stored, _ := f.repo.GetPlan(ctx, p.ID)
		assert.Equal(t, plan.StatusActive, stored.Status)

		require.NoError(t, f.svc.MarkInstallmentPaid(ctx, &MarkPaidRequest{PlanID: p.ID, Seq: 2, PaidDate: now, OwnerID: "alice"}))
		stored, _ = f.repo.GetPlan(ctx, p.ID)
		assert.Equal(t, plan.StatusCompleted, stored.Status)
	})

	t.Run("rejects double payment and decayed plans", func(t *testing.T) {
		f := newFixture(now)
		p := seedPayablePlan(f)

		require.NoError(t, f.svc.MarkInstallmentPaid(ctx, &MarkPaidRequest{PlanID: p.ID, Seq: 1, PaidDate: now, OwnerID: "alice"}))
		err := f.svc.MarkInstallmentPaid(ctx, &MarkPaidRequest{PlanID: p.ID, Seq: 1, PaidDate: now, OwnerID: "alice"})
		assert.Equal(t, errors.ErrCodeInstallmentAlreadyPaid, errors.GetCode(err))

		decayedAt := now
		decayed := f.repo.addPlan(plan.Plan{ID: 9, Kind: plan.KindWithholding, Status: plan.StatusDecayed, DecayedAt: &decayedAt, OwnerID: "alice"})
		f.repo.addInstallment(plan.Installment{PlanID: decayed.ID, Seq: 1, AmountCents: 100})
		err = f.svc.MarkInstallmentPaid(ctx, &MarkPaidRequest{PlanID: decayed.ID, Seq: 1, PaidDate: now, OwnerID: "alice"})
		assert.Equal(t, errors.ErrCodePlanStatusInvalid, errors.GetCode(err))
	})

	t.Run("unknown seq", func(t *testing.T) {
		f := newFixture(now)
		p := seedPayablePlan(f)
		err := f.svc.MarkInstallmentPaid(ctx, &MarkPaidRequest{PlanID: p.ID, Seq: 7, PaidDate: now, OwnerID: "alice"})
		assert.Equal(t, errors.ErrCodeInstallmentNotFound, errors.GetCode(err))
	})
}

func TestUnmarkInstallmentPaid(t *testing.T) {
	ctx := context.Background()
	now := day(2026, time.March, 10)

	t.Run("reverts the payment and reopens a completed plan", func(t *testing.T) {
		f := newFixture(now)
		p := seedPayablePlan(f)
		require.NoError(t, f.svc.MarkInstallmentPaid(ctx, &MarkPaidRequest{PlanID: p.ID, Seq: 1, PaidDate: now, OwnerID: "alice"}))
		require.NoError(t, f.svc.MarkInstallmentPaid(ctx, &MarkPaidRequest{PlanID: p.ID, Seq: 2, PaidDate: now, OwnerID: "alice"}))

		inst, err := f.repo.GetInstallmentBySeq(ctx, p.ID, 2)
		require.NoError(t, err)
		require.NoError(t, f.svc.UnmarkInstallmentPaid(ctx, &UnmarkPaidRequest{InstallmentID: inst.ID, Reason: "wrong receipt", OwnerID: "alice"}))

		inst, err = f.repo.GetInstallmentBySeq(ctx, p.ID, 2)
		require.NoError(t, err)
		assert.False(t, inst.Paid)
		assert.Nil(t, inst.PaidDate)
		assert.Zero(t, inst.TotalPaidWithPenaltyC)

		stored, _ := f.repo.GetPlan(ctx, p.ID)
		assert.Equal(t, plan.StatusActive, stored.Status)
		assert.Equal(t, plan.ActionInstallmentUnpaid, f.bus.lastAction())
	})

	t.Run("rejects an unpaid installment", func(t *testing.T) {
		f := newFixture(now)
		p := seedPayablePlan(f)
		inst, err := f.repo.GetInstallmentBySeq(ctx, p.ID, 1)
		require.NoError(t, err)

		err = f.svc.UnmarkInstallmentPaid(ctx, &UnmarkPaidRequest{InstallmentID: inst.ID, OwnerID: "alice"})
		assert.Equal(t, errors.ErrCodeInstallmentNotPaid, errors.GetCode(err))
	})
}

func TestPostponeInstallment(t *testing.T) {
	ctx := context.Background()
	now := day(2026, time.March, 10)
	f := newFixture(now)
	p := seedPayablePlan(f)

	newDue := day(2026, time.May, 31)
	require.NoError(t, f.svc.PostponeInstallment(ctx, &PostponeRequest{PlanID: p.ID, Seq: 2, NewDue: newDue, OwnerID: "alice"}))

	inst, err := f.repo.GetInstallmentBySeq(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, inst.Postponed)
	assert.True(t, inst.DueDate.Equal(newDue))
	assert.Equal(t, plan.ActionInstallmentPostponed, f.bus.lastAction())

	// Moving a due date backwards is refused.
	err = f.svc.PostponeInstallment(ctx, &PostponeRequest{PlanID: p.ID, Seq: 2, NewDue: day(2026, time.April, 1), OwnerID: "alice"})
	assert.Equal(t, errors.ErrCodeValidation, errors.GetCode(err))
}

func TestConfirmDecay(t *testing.T) {
	ctx := context.Background()
	now := day(2026, time.June, 15)

	t.Run("eligible plan decays", func(t *testing.T) {
		f := newFixture(now)
		p := f.repo.addPlan(plan.Plan{ID: 1, Kind: plan.KindWithholding, Status: plan.StatusActive, OwnerID: "alice"})
		f.repo.addInstallment(plan.Installment{PlanID: p.ID, Seq: 1, AmountCents: 100, DueDate: datePtr(now.AddDate(0, 0, -120))})

		require.NoError(t, f.svc.ConfirmDecay(ctx, &ConfirmDecayRequest{PlanID: p.ID, OwnerID: "alice"}))
		stored, _ := f.repo.GetPlan(ctx, p.ID)
		assert.Equal(t, plan.StatusDecayed, stored.Status)
		assert.NotNil(t, stored.DecayedAt)
		assert.Equal(t, plan.ActionDecayConfirmed, f.bus.lastAction())
	})

	t.Run("ineligible plan is refused unless forced", func(t *testing.T) {
		f := newFixture(now)
		p := f.repo.addPlan(plan.Plan{ID: 1, Kind: plan.KindWithholding, Status: plan.StatusActive, OwnerID: "alice"})
		f.repo.addInstallment(plan.Installment{PlanID: p.ID, Seq: 1, AmountCents: 100, DueDate: datePtr(now.AddDate(0, 0, -30))})

		err := f.svc.ConfirmDecay(ctx, &ConfirmDecayRequest{PlanID: p.ID, OwnerID: "alice"})
		assert.Equal(t, errors.ErrCodeDecayNotEligible, errors.GetCode(err))

		require.NoError(t, f.svc.ConfirmDecay(ctx, &ConfirmDecayRequest{PlanID: p.ID, Force: true, OwnerID: "alice"}))
	})

	t.Run("only withholding plans decay this way", func(t *testing.T) {
		f := newFixture(now)
		p := f.repo.addPlan(plan.Plan{ID: 1, Kind: plan.KindPortal, Status: plan.StatusActive, OwnerID: "alice"})

		err := f.svc.ConfirmDecay(ctx, &ConfirmDecayRequest{PlanID: p.ID, Force: true, OwnerID: "alice"})
		assert.Equal(t, errors.ErrCodePlanKindInvalid, errors.GetCode(err))
	})
}
