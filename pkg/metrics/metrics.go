package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	// Build Metrics
	BuildsTotal        *prometheus.CounterVec
	BuildDuration      prometheus.Histogram
	StageDuration      *prometheus.HistogramVec
	RecordsLoadedTotal *prometheus.CounterVec
	DroppedRecords     *prometheus.CounterVec
	RoutingDiagnostics *prometheus.CounterVec

	// Model Metrics
	GraphArcs        *prometheus.GaugeVec
	AggregateEntries *prometheus.GaugeVec

	// Database Metrics
	DBQueryDuration  *prometheus.HistogramVec
	DBConnectionPool *prometheus.GaugeVec
	DBErrorsTotal    *prometheus.CounterVec
}

// NewCollector creates a collector registered with the default registry.
func NewCollector(namespace string) *Collector {
	return NewCollectorWith(namespace, prometheus.DefaultRegisterer)
}

// NewCollectorWith creates a collector registered with reg.
func NewCollectorWith(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0},
			},
			[]string{"endpoint"},
		),

		APIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors by type",
			},
			[]string{"error_type", "endpoint"},
		),

		BuildsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_total",
				Help:      "Total number of model builds by outcome",
			},
			[]string{"outcome"},
		),

		BuildDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "build_duration_seconds",
				Help:      "Duration of a full model build in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
		),

		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of each build stage in seconds",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"stage"},
		),

		RecordsLoadedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_loaded_total",
				Help:      "Total number of source records loaded by table",
			},
			[]string{"table"},
		),

		DroppedRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dropped_records_total",
				Help:      "Series records dropped during aggregation and assembly by reason",
			},
			[]string{"reason"}, // "out_of_window", "unmatched_hour", "unresolved"
		),

		RoutingDiagnostics: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "routing_diagnostics_total",
				Help:      "Inflow routing anomalies by kind",
			},
			[]string{"kind"},
		),

		GraphArcs: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "graph_arcs",
				Help:      "Number of arcs in the last built graph by list",
			},
			[]string{"list"},
		),

		AggregateEntries: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "aggregate_entries",
				Help:      "Number of (name, stage, block) entries in the last build by aggregate",
			},
			[]string{"aggregate"},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds by query type",
				Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
			},
			[]string{"query_type"},
		),

		DBConnectionPool: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"state"}, // "in_use", "idle", "total"
		),

		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_errors_total",
				Help:      "Total number of database errors by type",
			},
			[]string{"error_type"},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// StageTimer starts a timer for a named build stage.
func (c *Collector) StageTimer(stage string) *Timer {
	return c.NewTimer(c.StageDuration.WithLabelValues(stage))
}

// RecordAPIRequest increments API request counter
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordAPIError increments API error counter
func (c *Collector) RecordAPIError(errorType, endpoint string) {
	c.APIErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordBuild increments the build counter for an outcome.
func (c *Collector) RecordBuild(outcome string) {
	c.BuildsTotal.WithLabelValues(outcome).Inc()
}

// RecordLoaded adds n loaded rows for a source table.
func (c *Collector) RecordLoaded(table string, n int) {
	c.RecordsLoadedTotal.WithLabelValues(table).Add(float64(n))
}

// RecordDropped adds n dropped records for a reason.
func (c *Collector) RecordDropped(reason string, n int) {
	if n <= 0 {
		return
	}
	c.DroppedRecords.WithLabelValues(reason).Add(float64(n))
}

// RecordRouting adds n routing diagnostics of a kind.
func (c *Collector) RecordRouting(kind string, n int) {
	if n <= 0 {
		return
	}
	c.RoutingDiagnostics.WithLabelValues(kind).Add(float64(n))
}

// SetGraphArcs publishes arc counts per list.
func (c *Collector) SetGraphArcs(counts map[string]int) {
	for list, n := range counts {
		c.GraphArcs.WithLabelValues(list).Set(float64(n))
	}
}

// SetAggregateEntries publishes the entry count of one aggregate.
func (c *Collector) SetAggregateEntries(aggregate string, n int) {
	c.AggregateEntries.WithLabelValues(aggregate).Set(float64(n))
}

// RecordDBError increments database error counter
func (c *Collector) RecordDBError(errorType string) {
	c.DBErrorsTotal.WithLabelValues(errorType).Inc()
}

// UpdateDBConnectionPool updates database connection pool metrics
func (c *Collector) UpdateDBConnectionPool(inUse, idle, total int) {
	c.DBConnectionPool.WithLabelValues("in_use").Set(float64(inUse))
	c.DBConnectionPool.WithLabelValues("idle").Set(float64(idle))
	c.DBConnectionPool.WithLabelValues("total").Set(float64(total))
}
