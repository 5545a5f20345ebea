// Package http wires the gin route tree and the HTTP server.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/fiscaldesk/rateations/internal/infrastructure/monitoring/logging"
	"github.com/fiscaldesk/rateations/internal/infrastructure/monitoring/prometheus"
	"github.com/fiscaldesk/rateations/internal/interfaces/http/handlers"
	"github.com/fiscaldesk/rateations/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware of the route tree.
type RouterConfig struct {
	PlanHandler      *handlers.PlanHandler
	MigrationHandler *handlers.MigrationHandler
	HealthHandler    *handlers.HealthHandler

	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
	AllowedOrigins   []string
	Mode             string
}

// NewRouter builds the full route tree: public probes, the metrics endpoint,
// and the caller-scoped API under /api/v1.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogger(cfg.Logger))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(cfg.AllowedOrigins))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	api := r.Group("/api/v1")
	api.Use(middleware.RequireCaller())

	registerPlanRoutes(api, cfg.PlanHandler)
	registerMigrationRoutes(api, cfg.MigrationHandler)

	return r
}

func registerPlanRoutes(r *gin.RouterGroup, h *handlers.PlanHandler) {
	if h == nil {
		return
	}
	r.GET("/plans", h.List)
	r.GET("/plans/:id", h.Get)
	r.GET("/plans/:id/installments", h.ListInstallments)
	r.GET("/plans/:id/kpi", h.GetKPI)
	r.GET("/portfolio/kpi", h.GetPortfolioKPI)
}

func registerMigrationRoutes(r *gin.RouterGroup, h *handlers.MigrationHandler) {
	if h == nil {
		return
	}
	// Plan lifecycle
	r.POST("/plans", h.CreatePlan)

	// Debt migration
	r.POST("/plans/:id/migrate-debts", h.MigrateDebts)
	r.POST("/plans/:id/rollback-migration", h.RollbackMigration)

	// Full-plan reattachment
	r.POST("/plans/:id/attach", h.Attach)
	r.POST("/plans/:id/detach", h.Detach)

	// Surcharge linking
	r.GET("/plans/:id/surcharge-preview/:portalID", h.PreviewSurcharge)
	r.POST("/plans/:id/surcharge-link", h.LinkSurcharge)
	r.DELETE("/plans/:id/surcharge-link", h.UnlinkSurcharge)

	// Installments
	r.POST("/plans/:id/installments/pay", h.MarkPaid)
	r.POST("/installments/:id/unmark-paid", h.UnmarkPaid)
	r.POST("/plans/:id/installments/postpone", h.Postpone)

	// Decay
	r.POST("/plans/:id/confirm-decay", h.ConfirmDecay)
}
