// Package telemetry provides the Prometheus metrics and OpenTelemetry tracing
// used by the notification consumer.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the notification service's Prometheus collectors.
type Metrics struct {
	NotificationsReceived  prometheus.Counter
	NotificationsSent      *prometheus.CounterVec
	ProcessingDuration     prometheus.Histogram
	NotificationErrors     *prometheus.CounterVec
	BrokerConnectionStatus prometheus.Gauge
}

// NewMetrics creates the metrics and registers them, together with the Go
// runtime and process collectors, on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Metrics{
		NotificationsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "notifications_received_total",
			Help: "Total number of notification events received",
		}),
		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notifications processed by routing key and outcome",
		}, []string{"type", "status"}),
		ProcessingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "notification_processing_duration_seconds",
			Help:    "Time spent processing a notification event",
			Buckets: prometheus.DefBuckets,
		}),
		NotificationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_errors_total",
			Help: "Total number of notification processing errors by kind",
		}, []string{"error_type"}),
		BrokerConnectionStatus: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rabbitmq_connection_status",
			Help: "RabbitMQ connection status (1 = connected, 0 = disconnected)",
		}),
	}
}
