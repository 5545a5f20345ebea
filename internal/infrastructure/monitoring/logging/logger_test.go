package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zapcore.Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewLoggerFromCore(core), logs
}

func TestFieldConstructors(t *testing.T) {
	assert.Equal(t, Field{Key: "k", Value: "v"}, String("k", "v"))
	assert.Equal(t, Field{Key: "n", Value: 7}, Int("n", 7))
	assert.Equal(t, Field{Key: "d", Value: time.Second}, Duration("d", time.Second))
	assert.Equal(t, Field{Key: "error", Value: "<nil>"}, Err(nil))
	assert.Equal(t, Field{Key: "error", Value: "boom"}, Err(errors.New("boom")))
}

func TestObservedOutput(t *testing.T) {
	log, logs := newObservedLogger(zapcore.DebugLevel)

	log.Info("plan migrated", String("plan_id", "42"), Int("debts", 3))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "plan migrated", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "42", fields["plan_id"])
	assert.Equal(t, int64(3), fields["debts"])
}

func TestLevelFiltering(t *testing.T) {
	log, logs := newObservedLogger(zapcore.WarnLevel)

	log.Debug("noise")
	log.Info("noise")
	log.Warn("kept")
	log.Error("kept too")

	assert.Equal(t, 2, logs.Len())
}

func TestWithAttachesFields(t *testing.T) {
	log, logs := newObservedLogger(zapcore.InfoLevel)

	child := log.With(String("component", "migration"))
	child.Info("started")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "migration", entries[0].ContextMap()["component"])
}

func TestNewLoggerDefaults(t *testing.T) {
	log, err := NewLogger(LogConfig{})
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()
	// Must not panic and With/Named must chain.
	log.With(String("a", "b")).Named("x").Info("ignored")
}

func TestDefaultLogger(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	log, _ := newObservedLogger(zapcore.InfoLevel)
	SetDefault(log)
	assert.Equal(t, log, Default())

	SetDefault(nil) // ignored
	assert.Equal(t, log, Default())
}
