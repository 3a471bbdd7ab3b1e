package consumer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Outcome labels the sent-notifications counter.
type Outcome string

// Outcomes recorded once per dispatched message.
const (
	OutcomeSuccess           Outcome = "success"
	OutcomeFailed            Outcome = "failed"
	OutcomeUnknownRoutingKey Outcome = "unknown_routing_key"
)

// ErrorKind labels the processing-errors counter.
type ErrorKind string

// Error kinds.
const (
	ErrorKindParse        ErrorKind = "parse"
	ErrorKindHandlerPanic ErrorKind = "handler_panic"
	ErrorKindSettle       ErrorKind = "settle"
)

// Hooks receives metrics and tracing calls from the pipeline. Implementations
// must not block.
type Hooks interface {
	IncrementReceived()
	IncrementSent(routingKey string, outcome Outcome)
	ObserveProcessingDuration(d time.Duration)
	IncrementError(kind ErrorKind)
	SetConnectionStatus(connected bool)
	// StartSpan starts a span; the pipeline ends it with span.End().
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
}
