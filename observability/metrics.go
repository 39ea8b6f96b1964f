package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Webhook outcomes
const (
	WebhookProcessed        = "processed"
	WebhookDuplicate        = "already_processed"
	WebhookInvalidPayload   = "invalid_payload"
	WebhookFailed           = "failed"
	WebhookRejected         = "rejected"
	WebhookSignatureInvalid = "invalid_signature"
)

// Metrics holds the Prometheus collectors of the API.
type Metrics struct {
	// Registry owns every collector below and backs /metrics.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	messagesSent    *prometheus.CounterVec
	jobRuns         *prometheus.CounterVec
}

// NewMetrics registers the collectors in a private registry, so tests can
// build as many as they like.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "legalflow_http_request_duration_seconds",
				Help:    "Duration of HTTP requests by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "legalflow_http_requests_total",
				Help: "Total HTTP requests by route and status code.",
			},
			[]string{"method", "route", "code"},
		),
		webhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "legalflow_webhook_events_total",
				Help: "Webhook deliveries by outcome. Failed deliveries are still acknowledged to the provider.",
			},
			[]string{"outcome"},
		),
		messagesSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "legalflow_whatsapp_messages_sent_total",
				Help: "Outbound WhatsApp messages by result.",
			},
			[]string{"result"},
		),
		jobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "legalflow_job_runs_total",
				Help: "Scheduled sweep runs by job and result.",
			},
			[]string{"job", "result"},
		),
	}
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, route, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
	m.requestsTotal.WithLabelValues(method, route, code).Inc()
}

// IncrWebhook counts one webhook delivery.
func (m *Metrics) IncrWebhook(outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(outcome).Inc()
}

// IncrMessageSent counts one outbound message.
func (m *Metrics) IncrMessageSent(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "error"
	}
	m.messagesSent.WithLabelValues(result).Inc()
}

// IncrJobRun counts one sweep run.
func (m *Metrics) IncrJobRun(job string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
}

// WebhookCounter exposes the per-outcome counter, mainly for tests.
func (m *Metrics) WebhookCounter(outcome string) prometheus.Counter {
	return m.webhookEvents.WithLabelValues(outcome)
}
