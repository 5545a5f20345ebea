package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fiscaldesk/rateations/internal/application/migration"
	"github.com/fiscaldesk/rateations/internal/infrastructure/monitoring/prometheus"
	"github.com/fiscaldesk/rateations/internal/interfaces/http/middleware"
	"github.com/fiscaldesk/rateations/pkg/errors"
)

// MigrationHandler serves the write side: debt migration, plan reattachment,
// surcharge linking and installment payments.  Owner identity always comes
// from the caller header, never the request body.
type MigrationHandler struct {
	svc     *migration.Service
	metrics *prometheus.AppMetrics
}

func NewMigrationHandler(svc *migration.Service, metrics *prometheus.AppMetrics) *MigrationHandler {
	return &MigrationHandler{svc: svc, metrics: metrics}
}

func (h *MigrationHandler) observe(operation string, err error, start time.Time) {
	if h.metrics != nil {
		h.metrics.ObserveMutation(operation, err, time.Since(start))
	}
}

// CreatePlan opens a new plan with its installment schedule, either generated
// or supplied explicitly.
func (h *MigrationHandler) CreatePlan(c *gin.Context) {
	var req migration.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Validation("malformed request body"))
		return
	}
	req.OwnerID = middleware.CallerID(c)

	start := time.Now()
	p, installments, err := h.svc.CreatePlan(c.Request.Context(), &req)
	h.observe("create_plan", err, start)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(201, gin.H{"plan": p, "installments": installments})
}

// MigrateDebts moves selected debts from a source plan into a readmission
// plan.
func (h *MigrationHandler) MigrateDebts(c *gin.Context) {
	var req migration.MigrateDebtsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Validation("malformed request body"))
		return
	}
	req.SourcePlanID = mustPathID(c)
	req.OwnerID = middleware.CallerID(c)

	start := time.Now()
	err := h.svc.MigrateDebts(c.Request.Context(), &req)
	h.observe("migrate_debts", err, start)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"migrated": len(req.DebtIDs), "target_plan_id": req.TargetPlanID})
}

// RollbackMigration restores the links moved by the last migration off this
// plan.
func (h *MigrationHandler) RollbackMigration(c *gin.Context) {
	var req migration.RollbackDebtMigrationRequest
	if err := bindOptionalBody(c, &req); err != nil {
		respondError(c, err)
		return
	}
	req.SourcePlanID = mustPathID(c)
	req.OwnerID = middleware.CallerID(c)

	start := time.Now()
	err := h.svc.RollbackDebtMigration(c.Request.Context(), &req)
	h.observe("rollback_migration", err, start)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(204)
}

// Attach interrupts the portal plan and links it to readmission targets.
func (h *MigrationHandler) Attach(c *gin.Context) {
	var req migration.AttachPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Validation("malformed request body"))
		return
	}
	req.PortalPlanID = mustPathID(c)
	req.OwnerID = middleware.CallerID(c)

	start := time.Now()
	links, err := h.svc.AttachPlanToTargets(c.Request.Context(), &req)
	h.observe("attach_plan", err, start)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(201, gin.H{"links": links})
}

// Detach removes reattachment links and reactivates the portal plan when the
// last one goes.
func (h *MigrationHandler) Detach(c *gin.Context) {
	var req migration.DetachPlanRequest
	if err := bindOptionalBody(c, &req); err != nil {
		respondError(c, err)
		return
	}
	req.PortalPlanID = mustPathID(c)
	req.OwnerID = middleware.CallerID(c)

	start := time.Now()
	result, err := h.svc.DetachPlanLinks(c.Request.Context(), &req)
	h.observe("detach_plan", err, start)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, result)
}

// PreviewSurcharge quotes the surcharge without writing anything.
func (h *MigrationHandler) PreviewSurcharge(c *gin.Context) {
	withholdingID := mustPathID(c)
	portalID, err := pathID(c, "portalID")
	if err != nil {
		respondError(c, err)
		return
	}

	quote, err := h.svc.PreviewSurcharge(c.Request.Context(), withholdingID, portalID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, quote)
}

// LinkSurcharge folds a decayed withholding plan into a portal plan.
func (h *MigrationHandler) LinkSurcharge(c *gin.Context) {
	var req migration.LinkSurchargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Validation("malformed request body"))
		return
	}
	req.WithholdingPlanID = mustPathID(c)
	req.OwnerID = middleware.CallerID(c)

	start := time.Now()
	result, err := h.svc.LinkWithSurcharge(c.Request.Context(), &req)
	h.observe("link_surcharge", err, start)
	if err != nil {
		respondError(c, err)
		return
	}
	status := 201
	if result.Action == "updated" {
		status = 200
	}
	c.JSON(status, result)
}

// UnlinkSurcharge removes the surcharge link and restores the plan.
func (h *MigrationHandler) UnlinkSurcharge(c *gin.Context) {
	var req migration.UnlinkSurchargeRequest
	if err := bindOptionalBody(c, &req); err != nil {
		respondError(c, err)
		return
	}
	req.WithholdingPlanID = mustPathID(c)
	req.OwnerID = middleware.CallerID(c)

	start := time.Now()
	result, err := h.svc.UnlinkSurcharge(c.Request.Context(), &req)
	h.observe("unlink_surcharge", err, start)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, result)
}

// MarkPaid records a payment on one installment.
func (h *MigrationHandler) MarkPaid(c *gin.Context) {
	var req migration.MarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Validation("malformed request body"))
		return
	}
	req.PlanID = mustPathID(c)
	req.OwnerID = middleware.CallerID(c)

	start := time.Now()
	err := h.svc.MarkInstallmentPaid(c.Request.Context(), &req)
	h.observe("mark_paid", err, start)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(204)
}

// UnmarkPaid clears a recorded payment.
func (h *MigrationHandler) UnmarkPaid(c *gin.Context) {
	var req migration.UnmarkPaidRequest
	if err := bindOptionalBody(c, &req); err != nil {
		respondError(c, err)
		return
	}
	req.InstallmentID = mustPathID(c)
	req.OwnerID = middleware.CallerID(c)

	start := time.Now()
	err := h.svc.UnmarkInstallmentPaid(c.Request.Context(), &req)
	h.observe("unmark_paid", err, start)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(204)
}

// Postpone moves an installment's due date forward.
func (h *MigrationHandler) Postpone(c *gin.Context) {
	var req migration.PostponeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Validation("malformed request body"))
		return
	}
	req.PlanID = mustPathID(c)
	req.OwnerID = middleware.CallerID(c)

	start := time.Now()
	err := h.svc.PostponeInstallment(c.Request.Context(), &req)
	h.observe("postpone", err, start)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(204)
}

// ConfirmDecay marks a withholding plan decayed once its overdue run has
// crossed the threshold.
func (h *MigrationHandler) ConfirmDecay(c *gin.Context) {
	var req migration.ConfirmDecayRequest
	if err := bindOptionalBody(c, &req); err != nil {
		respondError(c, err)
		return
	}
	req.PlanID = mustPathID(c)
	req.OwnerID = middleware.CallerID(c)

	start := time.Now()
	err := h.svc.ConfirmDecay(c.Request.Context(), &req)
	h.observe("confirm_decay", err, start)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(204)
}

// mustPathID reads the :id parameter; the router guarantees it is present,
// a non-numeric value falls through as 0 and fails request validation.
func mustPathID(c *gin.Context) int64 {
	id, err := pathID(c, "id")
	if err != nil {
		return 0
	}
	return id
}
