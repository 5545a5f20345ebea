// API server entry point for the rateations engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fiscaldesk/rateations/internal/application/dashboard"
	"github.com/fiscaldesk/rateations/internal/application/migration"
	"github.com/fiscaldesk/rateations/internal/config"
	"github.com/fiscaldesk/rateations/internal/domain/plan"
	"github.com/fiscaldesk/rateations/internal/infrastructure/database/postgres"
	"github.com/fiscaldesk/rateations/internal/infrastructure/database/postgres/repositories"
	"github.com/fiscaldesk/rateations/internal/infrastructure/database/redis"
	"github.com/fiscaldesk/rateations/internal/infrastructure/messaging/kafka"
	"github.com/fiscaldesk/rateations/internal/infrastructure/monitoring/logging"
	"github.com/fiscaldesk/rateations/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/fiscaldesk/rateations/internal/interfaces/http"
	"github.com/fiscaldesk/rateations/internal/interfaces/http/handlers"
)

const poolStatsInterval = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML config file; RATE_* env vars are used when empty")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      cfg.Log.OutputPaths,
		ErrorOutputPaths: cfg.Log.ErrorOutputPaths,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: logger init: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("apiserver")

	// Validate guarantees the timezone loads.
	loc, _ := time.LoadLocation(cfg.Engine.Timezone)

	conn, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatal("postgres connection failed", logging.Err(err))
	}
	defer conn.Close()

	if cfg.Database.MigrationPath != "" {
		if err := conn.RunMigrations(cfg.Database.MigrationPath); err != nil {
			logger.Fatal("database migration failed", logging.Err(err))
		}
	}
	repo := repositories.NewPostgresPlanRepo(conn, logger)

	// The cache accelerates KPI reads but is never required for correctness,
	// so a dead Redis at boot degrades the service instead of stopping it.
	var (
		cache       redis.Cache
		invalidator migration.CacheInvalidator
	)
	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, serving uncached KPI reads", logging.Err(err))
	} else {
		defer redisClient.Close()
		cacheOpts := []redis.CacheOption{redis.WithDefaultTTL(cfg.Engine.KPICacheTTL)}
		if cfg.Redis.KeyPrefix != "" {
			cacheOpts = append(cacheOpts, redis.WithPrefix(cfg.Redis.KeyPrefix))
		}
		cache = redis.NewCache(redisClient, logger, cacheOpts...)
		invalidator = redis.NewKPIInvalidator(cache, logger)
	}

	producer, err := kafka.NewProducer(cfg.Kafka, logger)
	if err != nil {
		logger.Fatal("kafka producer init failed", logging.Err(err))
	}
	defer producer.Close()
	ensureTopics(cfg.Kafka.Brokers, logger)
	events := kafka.NewEventPublisher(producer)

	opts := plan.KPIOptions{
		MaxSkips:     cfg.Engine.MaxSkips,
		RiskDays:     cfg.Engine.RecoveryRiskDays,
		PreDecayDays: cfg.Engine.PreDecayDays,
	}
	migrationSvc := migration.NewService(repo, events, invalidator, logger, loc, opts)
	dashboardSvc := dashboard.NewService(repo, cache, logger, loc, opts, cfg.Engine.KPICacheTTL)

	var (
		collector  prometheus.MetricsCollector
		appMetrics *prometheus.AppMetrics
	)
	if cfg.Metrics.Enabled {
		collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            "rateations",
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			logger.Fatal("metrics collector init failed", logging.Err(err))
		}
		appMetrics = prometheus.NewAppMetrics(collector)
		dashboardSvc.WithMetrics(appMetrics)
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		PlanHandler:      handlers.NewPlanHandler(repo, dashboardSvc, loc),
		MigrationHandler: handlers.NewMigrationHandler(migrationSvc, appMetrics),
		HealthHandler:    handlers.NewHealthHandler(conn, cache),
		Logger:           logger,
		Metrics:          appMetrics,
		MetricsCollector: collector,
		Mode:             cfg.Server.Mode,
	})
	server := httpserver.NewServer(cfg.Server, router, logger)

	stopStats := make(chan struct{})
	if appMetrics != nil {
		go reportPoolStats(conn, appMetrics, stopStats)
	}

	go func() {
		logger.Info("http server starting", logging.Int("port", cfg.Server.Port))
		if err := server.Start(); err != nil {
			logger.Error("http server stopped", logging.Err(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	close(stopStats)
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error("shutdown incomplete", logging.Err(err))
	}
	logger.Info("stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

// ensureTopics pre-creates the event topics so the first mutation does not
// race topic auto-creation. Failure is tolerated: most clusters either have
// the topics already or create them on first write.
func ensureTopics(brokers []string, logger logging.Logger) {
	tm, err := kafka.NewTopicManager(brokers, logger)
	if err != nil {
		logger.Warn("kafka topic check skipped", logging.Err(err))
		return
	}
	defer tm.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := tm.EnsureDefaultTopics(ctx); err != nil {
		logger.Warn("kafka topic creation failed", logging.Err(err))
	}
}

func reportPoolStats(conn *postgres.Connection, m *prometheus.AppMetrics, stop <-chan struct{}) {
	ticker := time.NewTicker(poolStatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			stats := conn.Stats()
			m.DBPoolOpen.WithLabelValues("postgres").Set(float64(stats.OpenConnections))
			m.DBPoolInUse.WithLabelValues("postgres").Set(float64(stats.InUse))
		}
	}
}
