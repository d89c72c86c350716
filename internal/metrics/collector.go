// Package metrics exports Prometheus metrics for grin graphs.
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rohankatakam/grin/internal/grin"
)

// Collector holds the metric families shared by every instrumented graph
type Collector struct {
	reg prometheus.Registerer

	ops     *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

var (
	defaultOnce      sync.Once
	defaultCollector *Collector
)

// Default returns the collector registered with the default Prometheus
// registry
func Default() *Collector {
	defaultOnce.Do(func() {
		defaultCollector = NewCollector(prometheus.DefaultRegisterer)
	})
	return defaultCollector
}

// NewCollector creates the metric families and registers them with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	buckets := []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}
	c := &Collector{
		reg: reg,
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grin_operations_total",
			Help: "Graph operations by name and outcome",
		}, []string{"op", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grin_operation_seconds",
			Help:    "Graph operation latency",
			Buckets: buckets,
		}, []string{"op"}),
	}
	reg.MustRegister(c.ops, c.latency)
	return c
}

func (c *Collector) observe(op string, start time.Time, err error) {
	c.ops.WithLabelValues(op, Result(err)).Inc()
	c.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Result names the outcome of an operation for the result label
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, grin.ErrNotFound):
		return "not_found"
	case errors.Is(err, grin.ErrUnsupported):
		return "unsupported"
	case errors.Is(err, grin.ErrTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, grin.ErrNullValue):
		return "null"
	case errors.Is(err, grin.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, grin.ErrClosed):
		return "closed"
	}
	return "error"
}

// handleGauges reports the live caller-owned handles of one graph
func (c *Collector) handleGauges(id string, t *grin.Tracker) []prometheus.Collector {
	gauge := func(kind grin.HandleKind, read func(grin.Stats) int64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "grin_live_handles",
			Help:        "Caller-owned handles not yet destroyed",
			ConstLabels: prometheus.Labels{"graph": id, "kind": string(kind)},
		}, func() float64 { return float64(read(t.Stats())) })
	}
	return []prometheus.Collector{
		gauge(grin.KindVertexProperty, func(s grin.Stats) int64 { return s.LiveVertexProperties }),
		gauge(grin.KindEdgeProperty, func(s grin.Stats) int64 { return s.LiveEdgeProperties }),
		gauge(grin.KindString, func(s grin.Stats) int64 { return s.LiveStrings }),
	}
}

// WriteTextfile writes every metric of g in the node-exporter textfile format
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
