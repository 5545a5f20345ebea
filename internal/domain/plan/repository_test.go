package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyPlanOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts := ApplyPlanOptions()
		assert.Equal(t, 20, opts.Limit)
		assert.Equal(t, 0, opts.Offset)
		assert.Empty(t, opts.Kind)
		assert.Empty(t, opts.Status)
	})

	t.Run("explicit values", func(t *testing.T) {
		opts := ApplyPlanOptions(WithLimit(50), WithOffset(40), WithKind(KindPortal), WithStatus(StatusActive))
		assert.Equal(t, 50, opts.Limit)
		assert.Equal(t, 40, opts.Offset)
		assert.Equal(t, KindPortal, opts.Kind)
		assert.Equal(t, StatusActive, opts.Status)
	})

	t.Run("clamps out of range", func(t *testing.T) {
		opts := ApplyPlanOptions(WithLimit(500), WithOffset(-3))
		assert.Equal(t, 100, opts.Limit)
		assert.Equal(t, 0, opts.Offset)

		opts = ApplyPlanOptions(WithLimit(-1))
		assert.Equal(t, 20, opts.Limit)
	})
}
