package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"booktrack/pkg/domain"
)

// Logger is the structured logging surface used by the store. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock provides time for duration measurements.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// Action outcomes reported to the MetricsRecorder.
const (
	OutcomeApplied      = "applied"
	OutcomeRejected     = "rejected"
	OutcomePersistError = "persist_error"
)

// MetricsRecorder receives dispatch and scan observations.
type MetricsRecorder interface {
	ObserveAction(kind domain.Kind, outcome string, duration time.Duration)
	ObserveScan(flow, result string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveAction(domain.Kind, string, time.Duration) {}
func (noopMetrics) ObserveScan(string, string)                       {}

// PrometheusRecorder exports dispatch and scan counters through client_golang.
type PrometheusRecorder struct {
	actions   *prometheus.CounterVec
	durations *prometheus.HistogramVec
	scans     *prometheus.CounterVec
}

// NewPrometheusRecorder creates the collectors and registers them with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booktrack_actions_total",
			Help: "Dispatched actions by kind and outcome.",
		}, []string{"action", "outcome"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "booktrack_action_duration_seconds",
			Help:    "Time spent reducing and persisting an action.",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booktrack_scans_total",
			Help: "Handled barcode decodes by flow and result.",
		}, []string{"flow", "result"}),
	}
	for _, c := range []prometheus.Collector{r.actions, r.durations, r.scans} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveAction implements MetricsRecorder.
func (r *PrometheusRecorder) ObserveAction(kind domain.Kind, outcome string, duration time.Duration) {
	r.actions.WithLabelValues(string(kind), outcome).Inc()
	r.durations.WithLabelValues(string(kind)).Observe(duration.Seconds())
}

// ObserveScan implements MetricsRecorder.
func (r *PrometheusRecorder) ObserveScan(flow, result string) {
	r.scans.WithLabelValues(flow, result).Inc()
}
