package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMigrationsTestServer(t *testing.T) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/plans/1/migrate-debts", func(w http.ResponseWriter, r *http.Request) {
		var req MigrateDebtsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []int64{11, 12}, req.DebtIDs)
		_ = json.NewEncoder(w).Encode(MigrateDebtsResult{Migrated: 2, TargetPlanID: req.TargetPlanID})
	})
	mux.HandleFunc("POST /api/v1/plans/1/rollback-migration", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/v1/plans/2/attach", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string][]LinkResult{
			"links": {{LinkID: 100, ReadmissionPlanID: 3}},
		})
	})
	mux.HandleFunc("POST /api/v1/plans/2/detach", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(DetachResult{Unlocked: true})
	})
	mux.HandleFunc("GET /api/v1/plans/4/surcharge-preview/2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(SurchargeQuote{ResidualCents: 30000, PortalTotalCents: 50000, DeltaCents: 20000})
	})
	mux.HandleFunc("POST /api/v1/plans/4/surcharge-link", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(LinkSurchargeResult{LinkID: 7, SurchargeCents: 20000, Action: "created"})
	})
	mux.HandleFunc("DELETE /api/v1/plans/4/surcharge-link", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(UnlinkSurchargeResult{Restored: true})
	})
	mux.HandleFunc("POST /api/v1/plans/1/installments/pay", func(w http.ResponseWriter, r *http.Request) {
		var req MarkPaidRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 3, req.Seq)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/v1/installments/10/unmark-paid", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/v1/plans/1/installments/postpone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/v1/plans/4/confirm-decay", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]bool
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body["force"])
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "alice")
	require.NoError(t, err)
	return c
}

func TestMigrateDebts(t *testing.T) {
	c := newMigrationsTestServer(t)

	res, err := c.Migrations().MigrateDebts(context.Background(), 1, MigrateDebtsRequest{
		DebtIDs:      []int64{11, 12},
		TargetPlanID: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Migrated)
	assert.Equal(t, int64(3), res.TargetPlanID)
}

func TestRollbackMigration(t *testing.T) {
	c := newMigrationsTestServer(t)
	err := c.Migrations().RollbackMigration(context.Background(), 1, RollbackRequest{})
	assert.NoError(t, err)
}

func TestAttachDetach(t *testing.T) {
	c := newMigrationsTestServer(t)

	links, err := c.Migrations().Attach(context.Background(), 2, AttachRequest{TargetPlanIDs: []int64{3}})
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, int64(3), links[0].ReadmissionPlanID)

	res, err := c.Migrations().Detach(context.Background(), 2, DetachRequest{})
	require.NoError(t, err)
	assert.True(t, res.Unlocked)
}

func TestSurchargeFlow(t *testing.T) {
	c := newMigrationsTestServer(t)

	quote, err := c.Migrations().PreviewSurcharge(context.Background(), 4, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), quote.DeltaCents)

	link, err := c.Migrations().LinkSurcharge(context.Background(), 4, LinkSurchargeRequest{PortalPlanID: 2})
	require.NoError(t, err)
	assert.Equal(t, "created", link.Action)
	assert.Equal(t, int64(20000), link.SurchargeCents)

	unlink, err := c.Migrations().UnlinkSurcharge(context.Background(), 4, "typo")
	require.NoError(t, err)
	assert.True(t, unlink.Restored)
}

func TestInstallmentLifecycle(t *testing.T) {
	c := newMigrationsTestServer(t)

	err := c.Migrations().MarkPaid(context.Background(), 1, MarkPaidRequest{
		Seq:      3,
		PaidDate: time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NoError(t, c.Migrations().UnmarkPaid(context.Background(), 10, "clerical error"))

	require.NoError(t, c.Migrations().Postpone(context.Background(), PostponeRequest{
		PlanID: 1,
		Seq:    4,
		NewDue: time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
	}))

	require.NoError(t, c.Migrations().ConfirmDecay(context.Background(), 4, true))
}
