package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscaldesk/rateations/pkg/client"
)

func newCLITestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/plans", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(client.PlanList{
			Plans: []client.Plan{
				{ID: 1, Number: "R-100", Kind: "WITHHOLDING", Status: "ACTIVE", TotalCents: 250000, OwnerID: "alice"},
				{ID: 2, Number: "R-200", Kind: "PORTAL", Status: "INTERRUPTED", TotalCents: 90000, OwnerID: "alice"},
			},
			Total: 2,
		})
	})
	mux.HandleFunc("GET /api/v1/plans/1/installments", func(w http.ResponseWriter, r *http.Request) {
		due := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"plan_id": int64(1),
			"installments": []client.Installment{
				{Seq: 1, DueDate: &due, AmountCents: 10000, EffectiveStatus: "OVERDUE", DaysOverdue: 152},
			},
		})
	})
	mux.HandleFunc("GET /api/v1/portfolio/kpi", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(client.PortfolioView{
			Plans: []client.PlanKPIView{
				{
					Plan: client.Plan{Number: "R-100", Kind: "WITHHOLDING", Status: "ACTIVE"},
					KPI: client.PlanKPI{
						TotalDueCents:  20000,
						TotalPaidCents: 10000,
						ResidualCents:  10000,
						OverdueCount:   1,
						Recovery:       &client.RecoveryWindow{AtRisk: true},
					},
				},
				{
					Plan: client.Plan{Number: "R-200", Kind: "PORTAL", Status: "ACTIVE"},
					KPI:  client.PlanKPI{SkipBudget: &client.SkipBudget{AtRisk: false}},
				},
			},
			Totals: &client.PortfolioKPI{TotalDueCents: 20000, AtRiskCount: 1, OverdueCount: 1},
		})
	})
	mux.HandleFunc("POST /api/v1/plans", func(w http.ResponseWriter, r *http.Request) {
		var req client.CreatePlanRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.Schedule)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(client.CreatedPlan{
			Plan: client.Plan{ID: 7, Number: req.Number, Kind: req.Kind, TotalCents: int64(req.Schedule.Count) * req.Schedule.AmountCents, Status: "ACTIVE"},
			Installments: []client.Installment{
				{Seq: 1, AmountCents: req.Schedule.AmountCents},
				{Seq: 2, AmountCents: req.Schedule.AmountCents},
			},
		})
	})
	mux.HandleFunc("POST /api/v1/plans/1/migrate-debts", func(w http.ResponseWriter, r *http.Request) {
		var req client.MigrateDebtsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(client.MigrateDebtsResult{
			Migrated:     len(req.DebtIDs),
			TargetPlanID: req.TargetPlanID,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPlansListTable(t *testing.T) {
	srv := newCLITestServer(t)

	out, err := execute(t, "plans", "list", "--server", srv.URL, "--caller", "alice")
	require.NoError(t, err)

	assert.Contains(t, out, "R-100")
	assert.Contains(t, out, "2500.00")
	assert.Contains(t, out, "INTERRUPTED")
}

func TestPlansListJSON(t *testing.T) {
	srv := newCLITestServer(t)

	out, err := execute(t, "plans", "list", "--server", srv.URL, "--caller", "alice", "-o", "json")
	require.NoError(t, err)

	var list client.PlanList
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Equal(t, int64(2), list.Total)
}

func TestPlansCreate(t *testing.T) {
	srv := newCLITestServer(t)

	out, err := execute(t, "plans", "create",
		"--number", "R-900", "--kind", "PORTAL",
		"--first-due", "2026-04-30", "--count", "2", "--amount-cents", "5000",
		"--server", srv.URL, "--caller", "alice")
	require.NoError(t, err)

	assert.Contains(t, out, "created plan 7")
	assert.Contains(t, out, "2 installments")
	assert.Contains(t, out, "100.00")
}

func TestPlansCreate_BadDate(t *testing.T) {
	srv := newCLITestServer(t)

	_, err := execute(t, "plans", "create",
		"--number", "R-900", "--kind", "PORTAL",
		"--first-due", "30/04/2026", "--count", "2", "--amount-cents", "5000",
		"--server", srv.URL, "--caller", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --first-due")
}

func TestPlansInstallmentsTable(t *testing.T) {
	srv := newCLITestServer(t)

	out, err := execute(t, "plans", "installments", "1", "--server", srv.URL, "--caller", "alice")
	require.NoError(t, err)

	assert.Contains(t, out, "2026-03-31")
	assert.Contains(t, out, "OVERDUE")
	assert.Contains(t, out, "152")
}

func TestPlansInstallments_InvalidID(t *testing.T) {
	srv := newCLITestServer(t)

	_, err := execute(t, "plans", "installments", "abc", "--server", srv.URL, "--caller", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid plan id")
}

func TestKPIPortfolioTable(t *testing.T) {
	srv := newCLITestServer(t)

	out, err := execute(t, "kpi", "portfolio", "--server", srv.URL, "--caller", "alice")
	require.NoError(t, err)

	assert.Contains(t, out, "R-100")
	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "TOTAL")
}

func TestMigrateDebts(t *testing.T) {
	srv := newCLITestServer(t)

	out, err := execute(t, "migrate", "debts",
		"--from", "1", "--to", "3", "--debt", "11", "--debt", "12",
		"--server", srv.URL, "--caller", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "migrated 2 debts to plan 3")
}

func TestMigrateDebts_MissingFlags(t *testing.T) {
	srv := newCLITestServer(t)

	_, err := execute(t, "migrate", "debts", "--server", srv.URL, "--caller", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--from and --to are required")
}
