package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/ledgeros/console-bfa-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the console gateway.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration    *prometheus.HistogramVec
	upstreamErrors     *prometheus.CounterVec
	staleDiscarded     *prometheus.CounterVec
	snapshotHits       *prometheus.CounterVec
	snapshotMisses     *prometheus.CounterVec
	sessionExpirations prometheus.Counter
	stagedRows         *prometheus.CounterVec
	requestsTotal      *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "console_operation_duration_seconds",
				Help:    "Duration of gateway operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		upstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_upstream_errors_total",
				Help: "Total failed calls to the LedgerOS API by endpoint group.",
			},
			[]string{"service"},
		),
		staleDiscarded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_stale_responses_discarded_total",
				Help: "Responses dropped because a later fetch for the same view had already landed.",
			},
			[]string{"view"},
		),
		snapshotHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_snapshot_hits_total",
				Help: "View snapshot reads served from memory.",
			},
			[]string{"view"},
		),
		snapshotMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_snapshot_misses_total",
				Help: "View snapshot reads with nothing stored.",
			},
			[]string{"view"},
		),
		sessionExpirations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "console_session_expirations_total",
				Help: "Sessions ended by an authorization failure.",
			},
		),
		stagedRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_import_rows_total",
				Help: "Bank statement rows by stage.",
			},
			[]string{"stage"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_requests_total",
				Help: "Total requests processed by status class.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the upstream error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.upstreamErrors.WithLabelValues(service).Inc()
}

// IncrStaleDiscarded counts a response dropped by the sequence guard.
func (m *Metrics) IncrStaleDiscarded(view string) {
	m.staleDiscarded.WithLabelValues(view).Inc()
}

// IncrSnapshotHit increments the snapshot hit counter.
func (m *Metrics) IncrSnapshotHit(view string) {
	m.snapshotHits.WithLabelValues(view).Inc()
}

// IncrSnapshotMiss increments the snapshot miss counter.
func (m *Metrics) IncrSnapshotMiss(view string) {
	m.snapshotMisses.WithLabelValues(view).Inc()
}

// IncrSessionExpired counts one session expiry.
func (m *Metrics) IncrSessionExpired() {
	m.sessionExpirations.Inc()
}

// AddStagedRows counts rows received from an upload.
func (m *Metrics) AddStagedRows(n int) {
	m.stagedRows.WithLabelValues("staged").Add(float64(n))
}

// AddSavedRows counts rows persisted by a save.
func (m *Metrics) AddSavedRows(n int) {
	m.stagedRows.WithLabelValues("saved").Add(float64(n))
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// GetConsoleSnapshot returns the counters behind GET /v1/metrics/console.
func (m *Metrics) GetConsoleSnapshot(authenticated bool) *domain.ConsoleMetrics {
	var total, failed float64
	for _, class := range []string{"2xx", "3xx", "4xx", "5xx"} {
		v := getCounterValue(m.requestsTotal, class)
		total += v
		if class == "5xx" {
			failed += v
		}
	}
	errorRate := float64(0)
	if total > 0 {
		errorRate = failed / total
	}

	return &domain.ConsoleMetrics{
		TotalRequests:      int64(total),
		UpstreamErrors:     int64(sumCounterVec(m.upstreamErrors)),
		ErrorRate:          errorRate,
		SessionExpirations: int64(counterValue(m.sessionExpirations)),
		StaleDiscarded:     int64(sumCounterVec(m.staleDiscarded)),
		RowsStaged:         int64(getCounterValue(m.stagedRows, "staged")),
		RowsSaved:          int64(getCounterValue(m.stagedRows, "saved")),
		Authenticated:      authenticated,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return counterValue(cv.WithLabelValues(label))
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounterVec adds up every label combination of a CounterVec.
func sumCounterVec(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()
	var total float64
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err == nil && m.Counter != nil {
			total += m.Counter.GetValue()
		}
	}
	return total
}
