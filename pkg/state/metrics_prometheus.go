package state

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exports pipeline operation counters and duration
// histograms through a prometheus registry.
type PrometheusMetricsRecorder struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder registers the statecore collectors with reg
// (the default registerer when nil).
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "statecore_operations_total",
		Help: "Persistence pipeline operations by result.",
	}, []string{"operation", "status"})
	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statecore_operation_duration_seconds",
		Help:    "Persistence pipeline operation latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	if err := reg.Register(operations); err != nil {
		return nil, err
	}
	if err := reg.Register(durations); err != nil {
		return nil, err
	}
	return &PrometheusMetricsRecorder{operations: operations, durations: durations}, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.operations.WithLabelValues(operation, status).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}
