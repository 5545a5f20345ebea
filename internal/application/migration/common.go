// Package migration contains the orchestration layer for the three atomic
// cross-plan workflows (debt migration, full-plan reattachment, single-debt
// surcharge linking) and the installment mutations.  Validation happens here,
// before any store call; atomicity is delegated to the repository's
// transaction boundary.  Every successful mutation publishes one broadcast
// event and eagerly invalidates the KPI cache for the touched plans.
package migration

import (
	"context"
	"time"

	"github.com/fiscaldesk/rateations/internal/domain/plan"
	"github.com/fiscaldesk/rateations/internal/infrastructure/monitoring/logging"
	"github.com/fiscaldesk/rateations/pkg/errors"
	"github.com/fiscaldesk/rateations/pkg/types/common"
)

// EventPublisher abstracts the broadcast bus.  Publishing is best-effort: a
// failed publish never rolls a committed mutation back.
type EventPublisher interface {
	Publish(ctx context.Context, evt common.DomainEvent) error
}

// CacheInvalidator evicts cached KPI reads for the given plans, across all
// caller identities.
type CacheInvalidator interface {
	InvalidatePlans(ctx context.Context, planIDs ...int64) error
}

// Service carries the shared dependencies of the migration workflows.
type Service struct {
	repo   plan.Repository
	events EventPublisher
	cache  CacheInvalidator
	logger logging.Logger
	loc    *time.Location
	opts   plan.KPIOptions
	now    func() time.Time
}

// NewService constructs the orchestrator.  loc governs all calendar-day
// arithmetic; nil falls back to UTC.  Zero opts fields take the policy
// defaults.
func NewService(repo plan.Repository, events EventPublisher, cache CacheInvalidator, logger logging.Logger, loc *time.Location, opts plan.KPIOptions) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{
		repo:   repo,
		events: events,
		cache:  cache,
		logger: logger,
		loc:    loc,
		opts:   opts,
		now:    time.Now,
	}
}

// afterMutation runs the common post-commit steps: broadcast and cache
// eviction.  Neither failure surfaces to the caller; the mutation already
// committed and consumers re-fetch on their own schedule anyway.
func (s *Service) afterMutation(ctx context.Context, action plan.ChangeAction, planIDs ...int64) {
	if s.events != nil {
		evt := plan.NewStateChangedEvent(action, planIDs...)
		if err := s.events.Publish(ctx, evt); err != nil {
			s.logger.Warn("state-changed broadcast failed",
				logging.String("action", string(action)),
				logging.Err(err))
		}
	}
	if s.cache != nil {
		if err := s.cache.InvalidatePlans(ctx, planIDs...); err != nil {
			s.logger.Warn("cache invalidation failed",
				logging.String("action", string(action)),
				logging.Err(err))
		}
	}
}

// fetchOwnedPlan loads a plan and enforces ownership when the caller supplied
// an owner id.  An empty ownerID skips the check (trusted internal caller).
func (s *Service) fetchOwnedPlan(ctx context.Context, repo plan.Repository, planID int64, ownerID string) (*plan.Plan, error) {
	if planID <= 0 {
		return nil, errors.New(errors.ErrCodeValidation, "plan id must be positive")
	}
	p, err := repo.GetPlan(ctx, planID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.Newf(errors.ErrCodePlanNotFound, "plan %d not found", planID)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load plan")
	}
	if ownerID != "" && p.OwnerID != ownerID {
		return nil, errors.Newf(errors.ErrCodePlanAccessDenied, "plan %d does not belong to the caller", planID)
	}
	return p, nil
}

// uniquePositive deduplicates ids, rejecting non-positive entries.
func uniquePositive(ids []int64) ([]int64, error) {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, errors.Newf(errors.ErrCodeValidation, "id %d is not a valid identifier", id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}
