//go:build integration

package repositories_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscaldesk/rateations/internal/domain/plan"
	"github.com/fiscaldesk/rateations/internal/infrastructure/database/postgres"
	"github.com/fiscaldesk/rateations/internal/infrastructure/database/postgres/repositories"
	"github.com/fiscaldesk/rateations/internal/infrastructure/monitoring/logging"
	"github.com/fiscaldesk/rateations/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS plans (
	id                     BIGSERIAL PRIMARY KEY,
	number                 TEXT NOT NULL DEFAULT '',
	kind                   TEXT NOT NULL,
	taxpayer_id            TEXT,
	owner_id               TEXT NOT NULL DEFAULT '',
	total_cents            BIGINT NOT NULL DEFAULT 0,
	status                 TEXT NOT NULL DEFAULT 'ACTIVE',
	interrupted_at         TIMESTAMPTZ,
	interrupted_reason     TEXT,
	interrupted_by_plan_id BIGINT,
	decayed_at             TIMESTAMPTZ,
	migrated_debt_ids      BIGINT[] NOT NULL DEFAULT '{}',
	note                   TEXT,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT chk_plans_kind CHECK (kind IN ('WITHHOLDING', 'PORTAL', 'AMNESTY_BASE', 'AMNESTY_READMISSION', 'OTHER')),
	CONSTRAINT chk_plans_status CHECK (status IN ('ACTIVE', 'LATE', 'COMPLETED', 'DECAYED', 'INTERRUPTED', 'EXTINGUISHED'))
);
CREATE TABLE IF NOT EXISTS installments (
	id               BIGSERIAL PRIMARY KEY,
	plan_id          BIGINT NOT NULL REFERENCES plans(id),
	seq              INT NOT NULL,
	due_date         TIMESTAMPTZ,
	amount_cents     BIGINT NOT NULL DEFAULT 0,
	paid             BOOLEAN NOT NULL DEFAULT FALSE,
	paid_date        TIMESTAMPTZ,
	pay_mode         TEXT,
	penalty_cents    BIGINT NOT NULL DEFAULT 0,
	interest_cents   BIGINT NOT NULL DEFAULT 0,
	total_paid_cents BIGINT NOT NULL DEFAULT 0,
	postponed        BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE (plan_id, seq)
);
CREATE TABLE IF NOT EXISTS plan_debt_links (
	plan_id     BIGINT NOT NULL,
	debt_id     BIGINT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'ACTIVE',
	migrated_in BOOLEAN NOT NULL DEFAULT FALSE,
	migrated_at TIMESTAMPTZ,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (plan_id, debt_id)
);
CREATE TABLE IF NOT EXISTS readmission_links (
	id                  BIGSERIAL PRIMARY KEY,
	portal_plan_id      BIGINT NOT NULL,
	readmission_plan_id BIGINT NOT NULL,
	note                TEXT,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS surcharge_links (
	id                  BIGSERIAL PRIMARY KEY,
	withholding_plan_id BIGINT NOT NULL UNIQUE,
	portal_plan_id      BIGINT NOT NULL,
	residual_cents      BIGINT NOT NULL DEFAULT 0,
	portal_total_cents  BIGINT NOT NULL DEFAULT 0,
	surcharge_cents     BIGINT NOT NULL DEFAULT 0,
	reason              TEXT,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

func newTestRepo(t *testing.T) plan.Repository {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(schema)
	require.NoError(t, err)
	_, err = db.Exec(`TRUNCATE plans, installments, plan_debt_links, readmission_links, surcharge_links RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	conn := postgres.NewConnectionWithDB(db, logging.NewNopLogger())
	return repositories.NewPostgresPlanRepo(conn, logging.NewNopLogger())
}

func TestPlanRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	p := &plan.Plan{Number: "R-2026-001", Kind: plan.KindPortal, OwnerID: "alice", TotalCents: 55000, Status: plan.StatusActive}
	require.NoError(t, repo.CreatePlan(ctx, p))
	require.NotZero(t, p.ID)

	got, err := repo.GetPlan(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Number, got.Number)
	assert.Equal(t, plan.KindPortal, got.Kind)
	assert.Empty(t, got.MigratedDebtIDs)
	assert.Nil(t, got.Interruption)

	_, err = repo.GetPlan(ctx, 99999)
	assert.True(t, errors.IsNotFound(err))
}

func TestPlanEveryKindAndStatusPersists(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	kinds := []plan.Kind{
		plan.KindWithholding, plan.KindPortal, plan.KindAmnestyBase,
		plan.KindAmnestyReadmission, plan.KindOther,
	}
	statuses := []plan.Status{
		plan.StatusActive, plan.StatusLate, plan.StatusCompleted,
		plan.StatusDecayed, plan.StatusInterrupted, plan.StatusExtinguished,
	}

	for i, kind := range kinds {
		p := &plan.Plan{Number: fmt.Sprintf("R-K%d", i), Kind: kind, OwnerID: "alice", Status: plan.StatusActive}
		require.NoError(t, repo.CreatePlan(ctx, p), "kind %s must pass the table constraint", kind)
	}

	anchor := &plan.Plan{Number: "R-S", Kind: plan.KindPortal, OwnerID: "alice", Status: plan.StatusActive}
	require.NoError(t, repo.CreatePlan(ctx, anchor))
	now := time.Now().UTC()
	for _, status := range statuses {
		var intr *plan.Interruption
		var decayedAt *time.Time
		switch status {
		case plan.StatusInterrupted:
			intr = &plan.Interruption{At: now, ByPlanID: 1}
		case plan.StatusDecayed:
			decayedAt = &now
		}
		require.NoError(t, repo.UpdatePlanStatus(ctx, anchor.ID, status, intr, decayedAt),
			"status %s must pass the table constraint", status)
	}
}

func TestPlanStatusAndMigratedIDs(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	p := &plan.Plan{Number: "R-1", Kind: plan.KindPortal, OwnerID: "alice", Status: plan.StatusActive}
	require.NoError(t, repo.CreatePlan(ctx, p))

	intr := &plan.Interruption{At: time.Now().UTC(), Reason: "readmitted", ByPlanID: 42}
	require.NoError(t, repo.UpdatePlanStatus(ctx, p.ID, plan.StatusInterrupted, intr, nil))
	require.NoError(t, repo.SetMigratedDebtIDs(ctx, p.ID, []int64{7, 8}))

	got, err := repo.GetPlan(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.StatusInterrupted, got.Status)
	require.NotNil(t, got.Interruption)
	assert.Equal(t, int64(42), got.Interruption.ByPlanID)
	assert.Equal(t, []int64{7, 8}, got.MigratedDebtIDs)

	require.NoError(t, repo.UpdatePlanStatus(ctx, p.ID, plan.StatusActive, nil, nil))
	got, err = repo.GetPlan(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Interruption)
}

func TestInstallmentsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	p := &plan.Plan{Number: "R-1", Kind: plan.KindWithholding, OwnerID: "alice", Status: plan.StatusActive}
	require.NoError(t, repo.CreatePlan(ctx, p))

	due := time.Date(2026, time.April, 30, 0, 0, 0, 0, time.UTC)
	schedule, err := plan.GenerateSchedule(p.ID, due, plan.FreqMonthly, 3, 10000)
	require.NoError(t, err)
	ptrs := make([]*plan.Installment, len(schedule))
	for i := range schedule {
		ptrs[i] = &schedule[i]
	}
	require.NoError(t, repo.BatchCreateInstallments(ctx, ptrs))

	list, err := repo.ListInstallmentsByPlan(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, 1, list[0].Seq)

	paidDate := due.AddDate(0, 0, -2)
	require.NoError(t, repo.UpdateInstallmentPayment(ctx, list[0].ID, true, &paidDate, plan.PayModeOrdinary, 0, 0, 10000))

	got, err := repo.GetInstallmentBySeq(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.True(t, got.Paid)
	require.NotNil(t, got.PaidDate)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	p := &plan.Plan{Number: "R-1", Kind: plan.KindPortal, OwnerID: "alice", Status: plan.StatusActive}
	require.NoError(t, repo.CreatePlan(ctx, p))

	err := repo.WithTx(ctx, func(tx plan.Repository) error {
		if err := tx.SetMigratedDebtIDs(ctx, p.ID, []int64{1, 2, 3}); err != nil {
			return err
		}
		return errors.New(errors.ErrCodeConflict, "forced failure")
	})
	require.Error(t, err)

	got, err := repo.GetPlan(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.MigratedDebtIDs, "the write inside the failed transaction must not be visible")
}

func TestDebtLinkLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	now := time.Now().UTC()
	link := &plan.PlanDebtLink{PlanID: 1, DebtID: 10, Status: plan.LinkActive}
	require.NoError(t, repo.CreateDebtLink(ctx, link))

	got, err := repo.GetActiveLinkByDebt(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.PlanID)

	require.NoError(t, repo.UpdateDebtLinkStatus(ctx, 1, 10, plan.LinkMigratedOut, &now))
	_, err = repo.GetActiveLinkByDebt(ctx, 10)
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, repo.DeleteDebtLink(ctx, 1, 10))
	assert.True(t, errors.IsNotFound(repo.DeleteDebtLink(ctx, 1, 10)))
}

func TestReadmissionLinkCounting(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, target := range []int64{21, 22, 23} {
		require.NoError(t, repo.CreateReadmissionLink(ctx, &plan.ReadmissionLink{PortalPlanID: 5, ReadmissionPlanID: target}))
	}

	removed, err := repo.DeleteReadmissionLinks(ctx, 5, []int64{21})
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	n, err := repo.CountReadmissionLinks(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	removed, err = repo.DeleteReadmissionLinks(ctx, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}
