package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tekton"

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Recorder is implemented by Metrics and NoopMetrics.
type Recorder interface {
	// RecordOAuthCallback counts callback outcomes by redirect flag
	// (connected, auth_denied, no_code, auth_failed, db_save_failed).
	RecordOAuthCallback(result string)
	RecordWebhookForward(result string)
	// RecordCallback counts workflow callbacks by reported status.
	RecordCallback(status string)
	RecordGeneration(result string)
}

var _ Recorder = (*Metrics)(nil)

// Metrics owns its registry so several instances can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	OAuthCallbacksTotal  *prometheus.CounterVec
	WebhookForwardsTotal *prometheus.CounterVec
	CallbacksTotal       *prometheus.CounterVec
	GenerationsTotal     *prometheus.CounterVec

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

// Init returns a Prometheus recorder when enabled, otherwise a no-op one.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}
	return New()
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		OAuthCallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_callbacks_total",
			Help:      "Google Drive OAuth callbacks by outcome.",
		}, []string{"result"}),
		WebhookForwardsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_forwards_total",
			Help:      "Requests forwarded to the n8n webhook by outcome.",
		}, []string{"result"}),
		CallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callbacks_total",
			Help:      "Workflow callbacks received by reported status.",
		}, []string{"status"}),
		GenerationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Website generation submissions by outcome.",
		}, []string{"result"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		HTTPRequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.OAuthCallbacksTotal,
		m.WebhookForwardsTotal,
		m.CallbacksTotal,
		m.GenerationsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
	)
	return m
}

// Handler serves this instance's registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordOAuthCallback(result string) {
	m.OAuthCallbacksTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordWebhookForward(result string) {
	m.WebhookForwardsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordCallback(status string) {
	m.CallbacksTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordGeneration(result string) {
	m.GenerationsTotal.WithLabelValues(result).Inc()
}
