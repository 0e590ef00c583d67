package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seomaster_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seomaster_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seomaster_payments_total",
			Help: "Total number of processed payment events",
		},
		[]string{"provider", "result"},
	)

	TokensCreditedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seomaster_tokens_credited_total",
			Help: "Total tokens credited to user balances",
		},
		[]string{"provider"},
	)

	RefundsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seomaster_refunds_total",
			Help: "Total number of refunds applied",
		},
	)

	WebhookRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seomaster_webhook_requests_total",
			Help: "Total inbound webhook deliveries",
		},
		[]string{"source", "outcome"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seomaster_notifications_total",
			Help: "Total number of notifications by delivery status",
		},
		[]string{"kind", "status"},
	)

	NotificationQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seomaster_notification_queue_length",
			Help: "Current length of the notification queue",
		},
	)

	HealthProbeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seomaster_health_probe_failures_total",
			Help: "Total number of failed dependency probes",
		},
		[]string{"dependency"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordPayment(provider, result string) {
	PaymentsTotal.WithLabelValues(provider, result).Inc()
}

func RecordTokensCredited(provider string, tokens int64) {
	TokensCreditedTotal.WithLabelValues(provider).Add(float64(tokens))
}

func RecordRefund() {
	RefundsTotal.Inc()
}

func RecordWebhook(source, outcome string) {
	WebhookRequestsTotal.WithLabelValues(source, outcome).Inc()
}

func RecordNotification(kind, status string) {
	NotificationsTotal.WithLabelValues(kind, status).Inc()
}

func RecordHealthProbeFailure(dependency string) {
	HealthProbeFailuresTotal.WithLabelValues(dependency).Inc()
}
