// Cache-invalidation worker for the rateations engine.
//
// Every API instance invalidates its own Redis after a mutation, but an
// instance that crashes between commit and eviction leaves stale KPI entries
// behind.  This worker closes that gap: it consumes the state-changed topic
// and re-applies the eviction for every broadcast, so the cache converges even
// when the publishing instance died mid-flight.  Eviction is idempotent, so
// replays are harmless.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fiscaldesk/rateations/internal/config"
	"github.com/fiscaldesk/rateations/internal/domain/plan"
	"github.com/fiscaldesk/rateations/internal/infrastructure/database/redis"
	"github.com/fiscaldesk/rateations/internal/infrastructure/messaging/kafka"
	"github.com/fiscaldesk/rateations/internal/infrastructure/monitoring/logging"
)

const (
	consumerGroup   = "rateations-cache-invalidator"
	probePort       = 8081
	shutdownTimeout = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file; RATE_* env vars are used when empty")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      cfg.Log.OutputPaths,
		ErrorOutputPaths: cfg.Log.ErrorOutputPaths,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: logger init: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("worker")

	// Unlike the API server, this process exists only to evict cache entries,
	// so a dead Redis is fatal here.
	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("redis connection failed", logging.Err(err))
	}
	defer redisClient.Close()

	cacheOpts := []redis.CacheOption{}
	if cfg.Redis.KeyPrefix != "" {
		cacheOpts = append(cacheOpts, redis.WithPrefix(cfg.Redis.KeyPrefix))
	}
	cache := redis.NewCache(redisClient, logger, cacheOpts...)
	invalidator := redis.NewKPIInvalidator(cache, logger)

	consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.TopicStateChanged, consumerGroup, logger)
	if err != nil {
		logger.Fatal("kafka consumer init failed", logging.Err(err))
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	probe := startProbeServer(logger)

	done := make(chan error, 1)
	go func() {
		done <- consumer.Run(ctx, invalidationHandler(invalidator, logger))
	}()
	logger.Info("consuming", logging.String("topic", kafka.TopicStateChanged), logging.String("group", consumerGroup))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutting down")
		cancel()
		consumer.Close()
		<-done
	case err := <-done:
		if err != nil {
			logger.Error("consumer stopped", logging.Err(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	_ = probe.Shutdown(shutdownCtx)

	m := consumer.Metrics()
	logger.Info("stopped",
		logging.Int64("handled", m.MessagesHandled),
		logging.Int64("skipped", m.MessagesSkipped),
	)
}

// invalidationHandler decodes a state-changed broadcast and evicts every
// affected KPI entry.  Malformed payloads are reported once and dropped;
// retrying them cannot succeed.
func invalidationHandler(invalidator *redis.KPIInvalidator, logger logging.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.ConsumerMessage) error {
		var evt plan.StateChangedEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Warn("undecodable broadcast dropped",
				logging.Int64("offset", msg.Offset),
				logging.Err(err),
			)
			return nil
		}
		if len(evt.PlanIDs) == 0 {
			return nil
		}
		if err := invalidator.InvalidatePlans(ctx, evt.PlanIDs...); err != nil {
			return err
		}
		logger.Debug("kpi entries evicted",
			logging.String("action", string(evt.Action)),
			logging.Any("plan_ids", evt.PlanIDs),
		)
		return nil
	}
}

// startProbeServer exposes the liveness endpoint for the orchestrator.
func startProbeServer(logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	srv := &http.Server{Addr: fmt.Sprintf(":%d", probePort), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("probe server stopped", logging.Err(err))
		}
	}()
	return srv
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
