package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics groups every metric the engine records.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Plan mutations
	MutationsTotal   CounterVec
	MutationDuration HistogramVec
	DebtsMovedTotal  CounterVec

	// KPI reads
	KPIReadsTotal     CounterVec
	KPIReadDuration   HistogramVec
	CacheHitsTotal    CounterVec
	CacheMissesTotal  CounterVec
	StaleReadsDropped CounterVec

	// Event bus
	EventsPublishedTotal CounterVec
	EventPublishFailures CounterVec

	// Infrastructure
	DBPoolOpen      GaugeVec
	DBPoolInUse     GaugeVec
	DBQueryDuration HistogramVec
}

var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultDBDurationBuckets   = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewAppMetrics registers every metric on the collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total",
		"Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds",
		"HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests",
		"In-flight HTTP requests", "method")

	m.MutationsTotal = collector.RegisterCounter("plan_mutations_total",
		"Plan mutations by operation and outcome", "operation", "outcome")
	m.MutationDuration = collector.RegisterHistogram("plan_mutation_duration_seconds",
		"Plan mutation duration", DefaultDBDurationBuckets, "operation")
	m.DebtsMovedTotal = collector.RegisterCounter("debts_moved_total",
		"Debts moved between plans", "direction")

	m.KPIReadsTotal = collector.RegisterCounter("kpi_reads_total",
		"KPI reads by scope", "scope")
	m.KPIReadDuration = collector.RegisterHistogram("kpi_read_duration_seconds",
		"KPI read duration including cache", DefaultHTTPDurationBuckets, "scope")
	m.CacheHitsTotal = collector.RegisterCounter("kpi_cache_hits_total",
		"KPI cache hits", "scope")
	m.CacheMissesTotal = collector.RegisterCounter("kpi_cache_misses_total",
		"KPI cache misses", "scope")
	m.StaleReadsDropped = collector.RegisterCounter("kpi_stale_reads_dropped_total",
		"KPI reads superseded before their cache write", "scope")

	m.EventsPublishedTotal = collector.RegisterCounter("events_published_total",
		"Domain events published", "action")
	m.EventPublishFailures = collector.RegisterCounter("event_publish_failures_total",
		"Domain events that failed to publish", "action")

	m.DBPoolOpen = collector.RegisterGauge("db_pool_open_connections",
		"Open database connections", "db")
	m.DBPoolInUse = collector.RegisterGauge("db_pool_in_use_connections",
		"Database connections in use", "db")
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds",
		"Database query duration", DefaultDBDurationBuckets, "query")

	return m
}

// ObserveHTTPRequest records one finished HTTP request.
func (m *AppMetrics) ObserveHTTPRequest(method, path string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ObserveMutation records one plan mutation attempt.
func (m *AppMetrics) ObserveMutation(operation string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.MutationsTotal.WithLabelValues(operation, outcome).Inc()
	m.MutationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// DropStaleRead records one KPI read whose result was superseded before its
// cache write.
func (m *AppMetrics) DropStaleRead(scope string) {
	m.StaleReadsDropped.WithLabelValues(scope).Inc()
}

// ObserveKPIRead records one KPI read and whether the cache served it.
func (m *AppMetrics) ObserveKPIRead(scope string, cacheHit bool, elapsed time.Duration) {
	m.KPIReadsTotal.WithLabelValues(scope).Inc()
	m.KPIReadDuration.WithLabelValues(scope).Observe(elapsed.Seconds())
	if cacheHit {
		m.CacheHitsTotal.WithLabelValues(scope).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(scope).Inc()
	}
}
