// Package dashboard is the read side of the engine: per-plan and portfolio
// KPIs served through a TTL cache keyed by the authenticated caller.  The
// cache is a read-through optimization only; the store stays the source of
// truth and every successful mutation evicts the affected keys eagerly.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/fiscaldesk/rateations/internal/domain/plan"
	"github.com/fiscaldesk/rateations/internal/infrastructure/monitoring/logging"
	"github.com/fiscaldesk/rateations/pkg/errors"
)

// DefaultTTL is the cache lifetime of a KPI read.
const DefaultTTL = 5 * time.Minute

// CachePort abstracts cache get/set for the KPI reads.
type CachePort interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// MetricsPort receives read outcomes.  It is optional; the service works the
// same without one.
type MetricsPort interface {
	ObserveKPIRead(scope string, cacheHit bool, elapsed time.Duration)
	DropStaleRead(scope string)
}

// Scope labels for MetricsPort observations.
const (
	ScopePlan      = "plan"
	ScopePortfolio = "portfolio"
)

// PlanKPIView is the per-plan read model: the aggregate plus the plan header
// fields a list row needs.
type PlanKPIView struct {
	Plan plan.Plan    `json:"plan"`
	KPI  plan.PlanKPI `json:"kpi"`
	Band string       `json:"band,omitempty"`
	AsOf time.Time    `json:"as_of"`
}

// PortfolioView is the portfolio read model.  Totals is nil when the
// portfolio holds at most one plan; a single plan is its own totals row.
type PortfolioView struct {
	Plans  []PlanKPIView      `json:"plans"`
	Totals *plan.PortfolioKPI `json:"totals,omitempty"`
	AsOf   time.Time          `json:"as_of"`
}

// Service serves KPI reads.
type Service struct {
	repo    plan.Repository
	cache   CachePort
	logger  logging.Logger
	loc     *time.Location
	opts    plan.KPIOptions
	ttl     time.Duration
	tracker *readTracker
	metrics MetricsPort
	now     func() time.Time
}

// NewService constructs the read service.  A nil cache disables caching, a
// zero ttl takes DefaultTTL.
func NewService(repo plan.Repository, cache CachePort, logger logging.Logger, loc *time.Location, opts plan.KPIOptions, ttl time.Duration) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		repo:    repo,
		cache:   cache,
		logger:  logger,
		loc:     loc,
		opts:    opts,
		ttl:     ttl,
		tracker: newReadTracker(),
		now:     time.Now,
	}
}

// WithMetrics attaches a metrics sink and returns the service for chaining.
func (s *Service) WithMetrics(m MetricsPort) *Service {
	s.metrics = m
	return s
}

func (s *Service) observeRead(scope string, cacheHit bool, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveKPIRead(scope, cacheHit, time.Since(start))
	}
}

func (s *Service) observeStaleDrop(scope string) {
	if s.metrics != nil {
		s.metrics.DropStaleRead(scope)
	}
}

// PlanKey is the cache key of one plan's KPI for one caller.  The plan id
// comes before the caller so that invalidation can match every caller's copy
// of one plan with a single kpi:plan:<id>:* pattern.
func PlanKey(callerID string, planID int64) string {
	return fmt.Sprintf("kpi:plan:%d:%s", planID, callerID)
}

// PortfolioKey is the cache key of a caller's portfolio KPI.
func PortfolioKey(callerID string) string {
	return fmt.Sprintf("kpi:portfolio:%s", callerID)
}

// GetPlanKPI returns the KPI view for one plan, read through the cache.  A
// read superseded by a newer one for the same plan and caller still returns
// its value but never writes the cache, so a slow stale response cannot
// shadow a fresher one.
func (s *Service) GetPlanKPI(ctx context.Context, callerID string, planID int64) (*PlanKPIView, error) {
	if planID <= 0 {
		return nil, errors.New(errors.ErrCodeValidation, "plan id must be positive")
	}
	key := PlanKey(callerID, planID)
	start := time.Now()

	if s.cache != nil {
		var cached PlanKPIView
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.observeRead(ScopePlan, true, start)
			return &cached, nil
		} else if !errors.IsNotFound(err) {
			s.logger.Warn("kpi cache read failed", logging.String("key", key), logging.Err(err))
		}
	}

	reqID := s.tracker.begin(key)
	view, err := s.loadPlanKPI(ctx, callerID, planID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		// A cancelled call discards its result rather than applying it.
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "kpi read cancelled")
	}

	if s.cache != nil {
		if s.tracker.isLatest(key, reqID) {
			if err := s.cache.Set(ctx, key, view, s.ttl); err != nil {
				s.logger.Warn("kpi cache write failed", logging.String("key", key), logging.Err(err))
			}
		} else {
			s.observeStaleDrop(ScopePlan)
		}
	}
	s.observeRead(ScopePlan, false, start)
	return view, nil
}

func (s *Service) loadPlanKPI(ctx context.Context, callerID string, planID int64) (*PlanKPIView, error) {
	p, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.Newf(errors.ErrCodePlanNotFound, "plan %d not found", planID)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load plan")
	}
	if callerID != "" && p.OwnerID != callerID {
		return nil, errors.Newf(errors.ErrCodePlanAccessDenied, "plan %d does not belong to the caller", planID)
	}
	installments, err := s.repo.ListInstallmentsByPlan(ctx, planID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load installments")
	}

	now := s.now()
	today := plan.Midnight(now, s.loc)
	kpi := plan.AggregatePlan(*p, installments, s.opts, today, s.loc)

	view := &PlanKPIView{Plan: *p, KPI: kpi, AsOf: now}
	if kpi.Recovery != nil {
		view.Band = string(kpi.Recovery.RiskBand())
	}
	return view, nil
}

// GetPortfolioKPI aggregates every plan of the caller.  A plan whose
// installments cannot be loaded contributes zeros instead of failing the
// whole read; the totals row is only attached when more than one plan is
// present.
func (s *Service) GetPortfolioKPI(ctx context.Context, callerID string) (*PortfolioView, error) {
	if callerID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "caller identity is required")
	}
	key := PortfolioKey(callerID)
	start := time.Now()

	if s.cache != nil {
		var cached PortfolioView
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.observeRead(ScopePortfolio, true, start)
			return &cached, nil
		} else if !errors.IsNotFound(err) {
			s.logger.Warn("kpi cache read failed", logging.String("key", key), logging.Err(err))
		}
	}

	reqID := s.tracker.begin(key)

	plans, _, err := s.repo.ListPlansByOwner(ctx, callerID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list plans")
	}

	now := s.now()
	today := plan.Midnight(now, s.loc)
	view := &PortfolioView{AsOf: now}
	kpis := make([]plan.PlanKPI, 0, len(plans))
	for _, p := range plans {
		installments, err := s.repo.ListInstallmentsByPlan(ctx, p.ID)
		if err != nil {
			s.logger.Warn("portfolio read degraded to zero for plan",
				logging.Int64("plan_id", p.ID), logging.Err(err))
			installments = nil
		}
		kpi := plan.AggregatePlan(*p, installments, s.opts, today, s.loc)
		if p.CountsTowardActiveTotals() {
			kpis = append(kpis, kpi)
		}

		item := PlanKPIView{Plan: *p, KPI: kpi, AsOf: now}
		if kpi.Recovery != nil {
			item.Band = string(kpi.Recovery.RiskBand())
		}
		view.Plans = append(view.Plans, item)
	}

	total := plan.AggregatePortfolio(kpis)
	if total.NeedsTotalsRow() {
		view.Totals = &total
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "kpi read cancelled")
	}
	if s.cache != nil {
		if s.tracker.isLatest(key, reqID) {
			if err := s.cache.Set(ctx, key, view, s.ttl); err != nil {
				s.logger.Warn("kpi cache write failed", logging.String("key", key), logging.Err(err))
			}
		} else {
			s.observeStaleDrop(ScopePortfolio)
		}
	}
	s.observeRead(ScopePortfolio, false, start)
	return view, nil
}

// Invalidate drops the cached portfolio of the caller and the given plan
// keys.  It backs the eager eviction after mutations and the reaction to
// external change notifications.
func (s *Service) Invalidate(ctx context.Context, callerID string, planIDs ...int64) error {
	if s.cache == nil {
		return nil
	}
	keys := []string{PortfolioKey(callerID)}
	for _, id := range planIDs {
		keys = append(keys, PlanKey(callerID, id))
	}
	return s.cache.Delete(ctx, keys...)
}
