package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "cohortdash"

// Metrics are the service's Prometheus collectors, registered on the
// server's own registry.
type Metrics struct {
	// requests counts handled requests. Labels: route, status
	requests *prometheus.CounterVec
	// passDuration measures one filter and aggregate pass. Labels: route
	passDuration *prometheus.HistogramVec
	// emptyViews counts passes whose filters matched nothing. Labels: route
	emptyViews *prometheus.CounterVec

	records  prometheus.Gauge
	subjects prometheus.Gauge
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route and status",
		}, []string{"route", "status"}),
		passDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "dashboard",
			Name:      "pass_duration_seconds",
			Help:      "Time spent filtering and aggregating one request",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route"}),
		emptyViews: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "dashboard",
			Name:      "empty_views_total",
			Help:      "Requests whose filters matched no records",
		}, []string{"route"}),
		records: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "dataset",
			Name:      "records",
			Help:      "Records in the loaded dataset",
		}),
		subjects: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "dataset",
			Name:      "subjects",
			Help:      "Distinct subjects in the loaded dataset",
		}),
	}
}
