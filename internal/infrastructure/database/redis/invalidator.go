package redis

import (
	"context"
	"fmt"

	"github.com/fiscaldesk/rateations/internal/infrastructure/monitoring/logging"
)

// KPIInvalidator drops cached KPI views after a plan mutation.  Keys are
// scoped per caller, and a mutation must evict every caller's copy, so it
// deletes by pattern rather than by exact key.
type KPIInvalidator struct {
	cache  Cache
	logger logging.Logger
}

func NewKPIInvalidator(cache Cache, log logging.Logger) *KPIInvalidator {
	return &KPIInvalidator{cache: cache, logger: log}
}

// InvalidatePlans evicts the per-plan KPI entries of every given plan and all
// portfolio rollups.  Portfolio keys carry only the caller identity, so
// without an owner lookup the safe move is to drop them all; they repopulate
// on the next read.
func (i *KPIInvalidator) InvalidatePlans(ctx context.Context, planIDs ...int64) error {
	for _, id := range planIDs {
		pattern := fmt.Sprintf("kpi:plan:%d:*", id)
		if _, err := i.cache.DeleteByPattern(ctx, pattern); err != nil {
			return err
		}
	}
	if len(planIDs) > 0 {
		if _, err := i.cache.DeleteByPattern(ctx, "kpi:portfolio:*"); err != nil {
			return err
		}
	}
	return nil
}
