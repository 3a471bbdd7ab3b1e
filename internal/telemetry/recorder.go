package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shaharia-lab/finance-notifier/internal/consumer"
)

// Recorder implements consumer.Hooks on top of Metrics and a tracer.
type Recorder struct {
	metrics *Metrics
	tracer  trace.Tracer
}

var _ consumer.Hooks = (*Recorder)(nil)

// NewRecorder creates a Recorder. Spans are started from tp's ServiceName tracer.
func NewRecorder(m *Metrics, tp trace.TracerProvider) *Recorder {
	return &Recorder{metrics: m, tracer: tp.Tracer(ServiceName)}
}

func (r *Recorder) IncrementReceived() {
	r.metrics.NotificationsReceived.Inc()
}

func (r *Recorder) IncrementSent(routingKey string, outcome consumer.Outcome) {
	r.metrics.NotificationsSent.WithLabelValues(routingKey, string(outcome)).Inc()
}

func (r *Recorder) ObserveProcessingDuration(d time.Duration) {
	r.metrics.ProcessingDuration.Observe(d.Seconds())
}

func (r *Recorder) IncrementError(kind consumer.ErrorKind) {
	r.metrics.NotificationErrors.WithLabelValues(string(kind)).Inc()
}

func (r *Recorder) SetConnectionStatus(connected bool) {
	if connected {
		r.metrics.BrokerConnectionStatus.Set(1)
		return
	}
	r.metrics.BrokerConnectionStatus.Set(0)
}

func (r *Recorder) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attrs...),
	)
}
