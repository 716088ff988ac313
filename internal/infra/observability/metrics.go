package observability

import (
	"time"

	"github.com/boddenberg/finance-core/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the finance core.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	started time.Time

	operationDuration *prometheus.HistogramVec
	remoteCalls       *prometheus.CounterVec
	fallbacks         *prometheus.CounterVec
	persistenceErrors *prometheus.CounterVec
	batteryLevel      prometheus.Gauge
	lowBatteryAlerts  prometheus.Counter
	calendarEvents    *prometheus.CounterVec
	requestsTotal     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		started:  time.Now(),

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finance_operation_duration_seconds",
				Help:    "Duration of reconciled operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		remoteCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finance_remote_calls_total",
				Help: "Remote API calls by operation and result.",
			},
			[]string{"operation", "result"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finance_local_fallbacks_total",
				Help: "Operations served by the local store after a remote failure.",
			},
			[]string{"operation"},
		),
		persistenceErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finance_persistence_errors_total",
				Help: "Local store failures.",
			},
			[]string{"operation"},
		),
		batteryLevel: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "finance_battery_level_percent",
				Help: "Last observed battery level.",
			},
		),
		lowBatteryAlerts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "finance_low_battery_alerts_total",
				Help: "Readings below the low battery threshold while discharging.",
			},
		),
		calendarEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finance_calendar_events_total",
				Help: "Calendar event operations by kind.",
			},
			[]string{"operation"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finance_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
	}
}

// RecordDuration records the duration of an operation.
func (m *Metrics) RecordDuration(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrRemoteSuccess counts a successful remote call.
func (m *Metrics) IncrRemoteSuccess(operation string) {
	m.remoteCalls.WithLabelValues(operation, "success").Inc()
}

// IncrRemoteFailure counts a failed remote call.
func (m *Metrics) IncrRemoteFailure(operation string) {
	m.remoteCalls.WithLabelValues(operation, "failure").Inc()
}

// IncrFallback counts an operation answered by the local store.
func (m *Metrics) IncrFallback(operation string) {
	m.fallbacks.WithLabelValues(operation).Inc()
}

// IncrPersistenceError counts a local store failure.
func (m *Metrics) IncrPersistenceError(operation string) {
	m.persistenceErrors.WithLabelValues(operation).Inc()
}

// SetBatteryLevel records the last battery reading.
func (m *Metrics) SetBatteryLevel(level int) {
	m.batteryLevel.Set(float64(level))
}

// IncrLowBattery counts a low battery reading.
func (m *Metrics) IncrLowBattery() {
	m.lowBatteryAlerts.Inc()
}

// IncrCalendarEvent counts a calendar operation ("create", "delete", "sync").
func (m *Metrics) IncrCalendarEvent(operation string) {
	m.calendarEvents.WithLabelValues(operation).Inc()
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// SyncSnapshot summarizes remote/local reconciliation counters for the
// GET /v1/sync/stats endpoint.
func (m *Metrics) SyncSnapshot() *domain.SyncStats {
	var success, failures float64
	for _, metric := range collect(m.remoteCalls) {
		for _, lp := range metric.GetLabel() {
			if lp.GetName() != "result" {
				continue
			}
			switch lp.GetValue() {
			case "success":
				success += metric.GetCounter().GetValue()
			case "failure":
				failures += metric.GetCounter().GetValue()
			}
		}
	}
	fallbacks := sumCounter(m.fallbacks)
	persistence := sumCounter(m.persistenceErrors)

	rate := float64(0)
	if total := success + failures; total > 0 {
		rate = fallbacks / total
	}

	return &domain.SyncStats{
		RemoteSuccess:     int64(success),
		RemoteFailures:    int64(failures),
		Fallbacks:         int64(fallbacks),
		PersistenceErrors: int64(persistence),
		FallbackRate:      rate,
		Period:            "since " + m.started.UTC().Format(time.RFC3339),
	}
}

// sumCounter adds up every child of a CounterVec.
func sumCounter(cv *prometheus.CounterVec) float64 {
	var total float64
	for _, metric := range collect(cv) {
		total += metric.GetCounter().GetValue()
	}
	return total
}

// collect writes out every child metric of c.
func collect(c prometheus.Collector) []*dto.Metric {
	ch := make(chan prometheus.Metric)
	go func() {
		c.Collect(ch)
		close(ch)
	}()

	var out []*dto.Metric
	for pm := range ch {
		m := &dto.Metric{}
		if err := pm.Write(m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}
