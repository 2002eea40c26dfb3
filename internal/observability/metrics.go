package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

// Metrics owns a private registry so several apps (tests) can coexist in one
// process.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests       *prometheus.CounterVec
	apiLatency        *prometheus.HistogramVec
	apiInflight       prometheus.Gauge
	apiRequestBytes   *prometheus.HistogramVec
	shipmentsIngested prometheus.Counter
	uploads           *prometheus.CounterVec
	webhookDeliveries *prometheus.CounterVec
	taskOutcomes      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "HTTP requests currently being served.",
		}),
		apiRequestBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_body_bytes",
			Help:    "Declared HTTP request body size by route.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 9),
		}, []string{"route"}),
		shipmentsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shipments_ingested_total",
			Help: "Shipment records stored from uploaded files.",
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uploads_total",
			Help: "Spreadsheet uploads by outcome.",
		}, []string{"outcome"}),
		webhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Shipment webhook delivery attempts by outcome.",
		}, []string{"outcome"}),
		taskOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "task_attempts_total",
			Help: "Background task attempts by type and outcome.",
		}, []string{"task_type", "outcome"}),
	}
	m.registry.MustRegister(
		m.apiRequests,
		m.apiLatency,
		m.apiInflight,
		m.apiRequestBytes,
		m.shipmentsIngested,
		m.uploads,
		m.webhookDeliveries,
		m.taskOutcomes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the Prometheus exposition for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(route, method, status).Inc()
	m.apiLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func (m *Metrics) ObserveRequestBytes(route string, n int64) {
	if m != nil && n >= 0 {
		m.apiRequestBytes.WithLabelValues(route).Observe(float64(n))
	}
}

func (m *Metrics) ApiInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) ApiInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

func (m *Metrics) ShipmentsIngested(n int) {
	if m != nil && n > 0 {
		m.shipmentsIngested.Add(float64(n))
	}
}

func (m *Metrics) UploadOutcome(outcome string) {
	if m != nil {
		m.uploads.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) WebhookDelivery(outcome string) {
	if m != nil {
		m.webhookDeliveries.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) TaskOutcome(taskType, outcome string) {
	if m != nil {
		m.taskOutcomes.WithLabelValues(taskType, outcome).Inc()
	}
}

// RegisterQueueDepth exposes task_queue_depth, read from depth at scrape time.
func (m *Metrics) RegisterQueueDepth(log *logger.Logger, depth func(ctx context.Context) (int64, error)) {
	if m == nil || depth == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "task_queue_depth",
		Help: "Tasks waiting in the background queue.",
	}, func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := depth(ctx)
		if err != nil {
			if log != nil {
				log.Warn("metrics: task queue depth read failed", "error", err)
			}
			return -1
		}
		return float64(n)
	}))
}
