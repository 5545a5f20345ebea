package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fiscaldesk/rateations/internal/application/dashboard"
	"github.com/fiscaldesk/rateations/internal/domain/plan"
	"github.com/fiscaldesk/rateations/internal/interfaces/http/middleware"
	"github.com/fiscaldesk/rateations/pkg/errors"
)

// PlanHandler serves the read side: plan listings, installment schedules
// with their effective statuses, and the cached KPI views.
type PlanHandler struct {
	repo plan.Repository
	kpi  *dashboard.Service
	loc  *time.Location
	now  func() time.Time
}

func NewPlanHandler(repo plan.Repository, kpi *dashboard.Service, loc *time.Location) *PlanHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &PlanHandler{repo: repo, kpi: kpi, loc: loc, now: time.Now}
}

type listPlansResponse struct {
	Plans []*plan.Plan `json:"plans"`
	Total int64        `json:"total"`
}

// List returns the caller's plans, filtered by kind and status.
func (h *PlanHandler) List(c *gin.Context) {
	opts := []plan.PlanQueryOption{}
	if v := c.Query("kind"); v != "" {
		opts = append(opts, plan.WithKind(plan.Kind(v)))
	}
	if v := c.Query("status"); v != "" {
		opts = append(opts, plan.WithStatus(plan.Status(v)))
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts = append(opts, plan.WithLimit(n))
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts = append(opts, plan.WithOffset(n))
		}
	}

	plans, total, err := h.repo.ListPlansByOwner(c.Request.Context(), middleware.CallerID(c), opts...)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, listPlansResponse{Plans: plans, Total: total})
}

// Get returns one plan owned by the caller.
func (h *PlanHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	p, err := h.fetchOwned(c, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, p)
}

// installmentView decorates a stored installment with its resolved state.
type installmentView struct {
	plan.Installment
	EffectiveStatus plan.EffectiveStatus `json:"effective_status"`
	DaysOverdue     int                  `json:"days_overdue,omitempty"`
}

// ListInstallments returns the schedule with each row's effective status
// resolved against today.
func (h *PlanHandler) ListInstallments(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	p, err := h.fetchOwned(c, id)
	if err != nil {
		respondError(c, err)
		return
	}

	installments, err := h.repo.ListInstallmentsByPlan(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	today := h.now()
	views := make([]installmentView, len(installments))
	for i, inst := range installments {
		res := plan.Resolve(inst, p.Status, today, h.loc)
		views[i] = installmentView{
			Installment:     inst,
			EffectiveStatus: res.EffectiveStatus,
			DaysOverdue:     res.DaysOverdue,
		}
	}
	c.JSON(200, gin.H{"plan_id": id, "installments": views})
}

// GetKPI returns the cached KPI view of one plan.
func (h *PlanHandler) GetKPI(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	view, err := h.kpi.GetPlanKPI(c.Request.Context(), middleware.CallerID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, view)
}

// GetPortfolioKPI returns the caller's portfolio rollup.
func (h *PlanHandler) GetPortfolioKPI(c *gin.Context) {
	view, err := h.kpi.GetPortfolioKPI(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, view)
}

func (h *PlanHandler) fetchOwned(c *gin.Context, id int64) (*plan.Plan, error) {
	p, err := h.repo.GetPlan(c.Request.Context(), id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.New(errors.ErrCodePlanNotFound, "plan not found")
		}
		return nil, err
	}
	if caller := middleware.CallerID(c); caller != "" && p.OwnerID != caller {
		return nil, errors.New(errors.ErrCodePlanAccessDenied, "plan belongs to another owner")
	}
	return p, nil
}
