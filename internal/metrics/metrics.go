// Package metrics collects and exposes Prometheus metrics for the sync core.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the interface the transport and orchestrator report through.
type Recorder interface {
	RecordOperation(op string, outcome string)
	RecordLatency(op string, d time.Duration)
}

// Collector registers and updates the Prometheus metrics.
type Collector struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics. onlineFn feeds
// the live-session gauge straight from the presence tracker.
func NewCollector(reg prometheus.Registerer, onlineFn func() float64) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "landsync_operations_total",
			Help: "Sync operations by type and outcome.",
		}, []string{"op", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "landsync_operation_seconds",
			Help:    "Sync operation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(c.operations, c.latency)
	if onlineFn != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "landsync_online_sessions",
			Help: "Sessions currently tracked by the presence table.",
		}, onlineFn))
	}
	return c
}

// RecordOperation counts one operation with its outcome label.
func (c *Collector) RecordOperation(op, outcome string) {
	c.operations.WithLabelValues(op, outcome).Inc()
}

// RecordLatency observes one operation duration.
func (c *Collector) RecordLatency(op string, d time.Duration) {
	c.latency.WithLabelValues(op).Observe(d.Seconds())
}

// Handler returns the HTTP handler serving the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
