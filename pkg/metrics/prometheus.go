// Package metrics provides Prometheus metrics for the bank ETL pipeline.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for one pipeline process.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Stage metrics
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec

	// Data volume metrics
	recordsExtracted prometheus.Gauge
	recordsLoaded    prometheus.Gauge
	exchangeRate     *prometheus.GaugeVec
	fetchBytes       *prometheus.CounterVec

	// Query metrics
	queriesExecuted prometheus.Counter
	queryRows       prometheus.Counter

	lastSuccess prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init rebuilds the global manager on a fresh registry with opts applied.
// Call it once at startup, before anything is recorded.
func Init(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(customRegistry)}, opts...)...)
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "bankrank",
		subsystem:        "etl",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.stageDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "stage_duration_milliseconds",
			Help:        "Duration of each pipeline stage in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.customLabels,
		},
		[]string{"stage"},
	)

	m.stageErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "stage_errors_total",
			Help:        "Total number of failed pipeline stages by error kind",
			ConstLabels: m.customLabels,
		},
		[]string{"stage", "kind"},
	)

	m.recordsExtracted = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "records_extracted",
		Help:        "Number of bank records extracted by the last run",
		ConstLabels: m.customLabels,
	})

	m.recordsLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "records_loaded",
		Help:        "Number of rows written to the relational store by the last run",
		ConstLabels: m.customLabels,
	})

	m.exchangeRate = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "exchange_rate",
			Help:        "Units of currency per 1 USD used by the last transformation",
			ConstLabels: m.customLabels,
		},
		[]string{"currency"},
	)

	m.fetchBytes = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "fetch_bytes_total",
			Help:        "Bytes fetched from external sources",
			ConstLabels: m.customLabels,
		},
		[]string{"source"},
	)

	m.queriesExecuted = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queries_executed_total",
		Help:        "Total number of analytical queries executed",
		ConstLabels: m.customLabels,
	})

	m.queryRows = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "query_rows_total",
		Help:        "Total number of rows returned by analytical queries",
		ConstLabels: m.customLabels,
	})

	m.lastSuccess = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "last_success_timestamp_seconds",
		Help:        "Unix time of the last fully successful run",
		ConstLabels: m.customLabels,
	})
}

// RecordStageDuration records how long a stage took in milliseconds.
func RecordStageDuration(stage string, latencyMs float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(latencyMs)
}

// RecordStageError counts a failed stage.
func RecordStageError(stage, kind string) {
	globalManager.stageErrors.WithLabelValues(stage, kind).Inc()
}

// UpdateRecordsExtracted sets the number of extracted records.
func UpdateRecordsExtracted(count int) {
	globalManager.recordsExtracted.Set(float64(count))
}

// UpdateRecordsLoaded sets the number of loaded rows.
func UpdateRecordsLoaded(count int) {
	globalManager.recordsLoaded.Set(float64(count))
}

// UpdateExchangeRate exports the rate used for currency.
func UpdateExchangeRate(currency string, rate float64) {
	globalManager.exchangeRate.WithLabelValues(currency).Set(rate)
}

// RecordFetchBytes adds n fetched bytes for source ("page", "rates", ...).
func RecordFetchBytes(source string, n int) {
	globalManager.fetchBytes.WithLabelValues(source).Add(float64(n))
}

// RecordQuery counts an executed query and its result rows.
func RecordQuery(rows int) {
	globalManager.queriesExecuted.Inc()
	globalManager.queryRows.Add(float64(rows))
}

// MarkSuccess stamps the last successful run.
func MarkSuccess(t time.Time) {
	globalManager.lastSuccess.Set(float64(t.Unix()))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes the current registry in the text exposition format,
// suitable for the node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteTextfile, err)
	}
	return nil
}
