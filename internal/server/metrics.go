package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the server's Prometheus collectors on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	queries       *prometheus.CounterVec
	queryErrors   *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	reloads       *prometheus.CounterVec
}

// NewMetrics registers the query and reload collectors plus the Go runtime
// and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "howard_queries_total",
				Help: "Answered queries by result kind (formula or search).",
			},
			[]string{"kind"},
		),
		queryErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "howard_query_errors_total",
				Help: "Failed queries by reason.",
			},
			[]string{"reason"},
		),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "howard_query_duration_seconds",
				Help:    "Query latency by result kind.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"kind"},
		),
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "howard_snapshot_reloads_total",
				Help: "Snapshot reload attempts by result (ok or error).",
			},
			[]string{"result"},
		),
	}
	m.registry.MustRegister(
		m.queries,
		m.queryErrors,
		m.queryDuration,
		m.reloads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveReload counts one reload attempt. It is suitable as a
// snapshot.Holder OnReload callback.
func (m *Metrics) ObserveReload(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.reloads.WithLabelValues(result).Inc()
}
