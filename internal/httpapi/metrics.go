package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the prediction path: a
// request counter labeled by model and outcome, plus a latency histogram
// and a queue-depth gauge labeled by model, scraped from GET /metrics.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	queueDepth      *prometheus.GaugeVec
}

// NewMetrics registers the server's Prometheus collectors against reg. A
// nil reg registers against the default global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "predictord_requests_total",
			Help: "Total prediction requests handled, labeled by model and outcome.",
		}, []string{"model", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "predictord_request_duration_seconds",
			Help:    "Prediction request latency from enqueue to reply, labeled by model.",
			Buckets: prometheus.DefBuckets,
		}, []string{"model"}),
		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "predictord_queue_depth",
			Help: "Current number of messages buffered in a model's queue.",
		}, []string{"model"}),
	}
}

// Observe records one completed request's outcome and latency. Shared by
// both the HTTP and gRPC front ends so /metrics reflects traffic from
// either.
func (m *Metrics) Observe(model, status string, seconds float64) {
	m.requestsTotal.WithLabelValues(model, status).Inc()
	m.requestDuration.WithLabelValues(model).Observe(seconds)
}

// SetQueueDepth records the current depth of model's queue.
func (m *Metrics) SetQueueDepth(model string, depth int) {
	m.queueDepth.WithLabelValues(model).Set(float64(depth))
}
