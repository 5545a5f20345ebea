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

// seedSurchargePlans builds a decayed withholding plan with 400.00 EUR of
// unpaid installments and a portal plan totalling 550.00 EUR.
func seedSurchargePlans(f *fixture) (withholding, portal *plan.Plan) {
	decayedAt := day(2026, time.January, 1)
	withholding = f.repo.addPlan(plan.Plan{
		ID: 1, Kind: plan.KindWithholding, Status: plan.StatusDecayed,
		DecayedAt: &decayedAt, OwnerID: "alice",
	})
	portal = f.repo.addPlan(plan.Plan{
		ID: 2, Kind: plan.KindPortal, Status: plan.StatusActive,
		TotalCents: 55000, OwnerID: "alice",
	})
	f.repo.addInstallment(plan.Installment{PlanID: withholding.ID, Seq: 1, AmountCents: 20000, Paid: true})
	f.repo.addInstallment(plan.Installment{PlanID: withholding.ID, Seq: 2, AmountCents: 20000})
	f.repo.addInstallment(plan.Installment{PlanID: withholding.ID, Seq: 3, AmountCents: 20000})
	return withholding, portal
}

func TestPreviewSurcharge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(day(2026, time.March, 10))
	withholding, portal := seedSurchargePlans(f)

	q, err := f.svc.PreviewSurcharge(ctx, withholding.ID, portal.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), q.ResidualCents)
	assert.Equal(t, int64(55000), q.PortalTotalCents)
	assert.Equal(t, int64(15000), q.DeltaCents)

	// Pure and re-callable: same output, no link created, no event published.
	again, err := f.svc.PreviewSurcharge(ctx, withholding.ID, portal.ID)
	require.NoError(t, err)
	assert.Equal(t, q, again)
	_, err = f.repo.GetSurchargeLinkByWithholding(ctx, withholding.ID)
	assert.True(t, errors.IsNotFound(err))
	assert.Empty(t, f.bus.events)
}

func TestPreviewSurchargeNegativeDelta(t *testing.T) {
	ctx := context.Background()
	f := newFixture(day(2026, time.March, 10))
	withholding, portal := seedSurchargePlans(f)
	portal.TotalCents = 30000
	f.repo.addPlan(*portal)

	q, err := f.svc.PreviewSurcharge(ctx, withholding.ID, portal.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-10000), q.DeltaCents, "the preview keeps the sign so a saving is visible")
}

func TestLinkWithSurcharge(t *testing.T) {
	ctx := context.Background()
	now := day(2026, time.March, 10)

	t.Run("creates the link with a floored snapshot", func(t *testing.T) {
		f := newFixture(now)
		withholding, portal := seedSurchargePlans(f)

		res, err := f.svc.LinkWithSurcharge(ctx, &LinkSurchargeRequest{
			WithholdingPlanID: withholding.ID, PortalPlanID: portal.ID, Reason: "decayed", OwnerID: "alice",
		})
		require.NoError(t, err)
		assert.Equal(t, "created", res.Action)
		assert.Equal(t, int64(15000), res.SurchargeCents)

		link, err := f.repo.GetSurchargeLinkByWithholding(ctx, withholding.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(40000), link.ResidualCents)
		assert.Equal(t, int64(55000), link.PortalTotalCents)
		assert.Equal(t, plan.ActionSurchargeLinked, f.bus.lastAction())
	})

	t.Run("a saving stores zero surcharge", func(t *testing.T) {
		f := newFixture(now)
		withholding, portal := seedSurchargePlans(f)
		portal.TotalCents = 30000
		f.repo.addPlan(*portal)

		res, err := f.svc.LinkWithSurcharge(ctx, &LinkSurchargeRequest{
			WithholdingPlanID: withholding.ID, PortalPlanID: portal.ID, OwnerID: "alice",
		})
		require.NoError(t, err)
		assert.Zero(t, res.SurchargeCents)
	})

	t.Run("relink to another portal replaces the old link", func(t *testing.T) {
		f := newFixture(now)
		withholding, portalX := seedSurchargePlans(f)
		portalY := f.repo.addPlan(plan.Plan{ID: 3, Kind: plan.KindPortal, Status: plan.StatusActive, TotalCents: 60000, OwnerID: "alice"})

		_, err := f.svc.LinkWithSurcharge(ctx, &LinkSurchargeRequest{WithholdingPlanID: withholding.ID, PortalPlanID: portalX.ID, OwnerID: "alice"})
		require.NoError(t, err)

		res, err := f.svc.LinkWithSurcharge(ctx, &LinkSurchargeRequest{WithholdingPlanID: withholding.ID, PortalPlanID: portalY.ID, OwnerID: "alice"})
		require.NoError(t, err)
		assert.Equal(t, "updated", res.Action)

		// Exactly one link survives and it points at Y.
		link, err := f.repo.GetSurchargeLinkByWithholding(ctx, withholding.ID)
		require.NoError(t, err)
		assert.Equal(t, portalY.ID, link.PortalPlanID)
	})

	t.Run("relinking the same pair conflicts", func(t *testing.T) {
		f := newFixture(now)
		withholding, portal := seedSurchargePlans(f)

		_, err := f.svc.LinkWithSurcharge(ctx, &LinkSurchargeRequest{WithholdingPlanID: withholding.ID, PortalPlanID: portal.ID, OwnerID: "alice"})
		require.NoError(t, err)
		_, err = f.svc.LinkWithSurcharge(ctx, &LinkSurchargeRequest{WithholdingPlanID: withholding.ID, PortalPlanID: portal.ID, OwnerID: "alice"})
		assert.Equal(t, errors.ErrCodeLinkConflict, errors.GetCode(err))
	})

	t.Run("only decayed or interrupted plans can be folded in", func(t *testing.T) {
		f := newFixture(now)
		withholding, portal := seedSurchargePlans(f)
		withholding.Status = plan.StatusActive
		withholding.DecayedAt = nil
		f.repo.addPlan(*withholding)

		_, err := f.svc.LinkWithSurcharge(ctx, &LinkSurchargeRequest{WithholdingPlanID: withholding.ID, PortalPlanID: portal.ID, OwnerID: "alice"})
		assert.Equal(t, errors.ErrCodePlanStatusInvalid, errors.GetCode(err))
	})
}

func TestUnlinkSurcharge(t *testing.T) {
	ctx := context.Background()
	now := day(2026, time.March, 10)

	t.Run("deletes the link and restores the plan", func(t *testing.T) {
		f := newFixture(now)
		withholding, portal := seedSurchargePlans(f)
		_, err := f.svc.LinkWithSurcharge(ctx, &LinkSurchargeRequest{WithholdingPlanID: withholding.ID, PortalPlanID: portal.ID, OwnerID: "alice"})
		require.NoError(t, err)

		res, err := f.svc.UnlinkSurcharge(ctx, &UnlinkSurchargeRequest{WithholdingPlanID: withholding.ID, OwnerID: "alice"})
		require.NoError(t, err)
		assert.True(t, res.Restored)

		stored, err := f.repo.GetPlan(ctx, withholding.ID)
		require.NoError(t, err)
		assert.Equal(t, plan.StatusActive, stored.Status)
		assert.Nil(t, stored.DecayedAt)

		_, err = f.repo.GetSurchargeLinkByWithholding(ctx, withholding.ID)
		assert.True(t, errors.IsNotFound(err))
		assert.Equal(t, plan.ActionSurchargeUnlinked, f.bus.lastAction())
	})

	t.Run("missing link is an error", func(t *testing.T) {
		f := newFixture(now)
		withholding, _ := seedSurchargePlans(f)

		_, err := f.svc.UnlinkSurcharge(ctx, &UnlinkSurchargeRequest{WithholdingPlanID: withholding.ID, OwnerID: "alice"})
		assert.Equal(t, errors.ErrCodeLinkNotFound, errors.GetCode(err))
	})
}
