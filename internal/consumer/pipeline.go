// Package consumer owns the broker connection and turns each delivery into
// exactly one acknowledgment decision.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/shaharia-lab/finance-notifier/internal/dispatch"
	"github.com/shaharia-lab/finance-notifier/internal/events"
)

const spanName = "process_notification"

// Dispatcher routes a decoded event to its handler.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev events.Event) dispatch.Result
}

// Disposition is the acknowledgment decision taken for a message.
type Disposition string

// Dispositions.
const (
	// Acked removes the message from the queue.
	Acked Disposition = "acked"
	// Requeued returns the message to the queue for redelivery.
	Requeued Disposition = "requeued"
	// Rejected drops the message permanently.
	Rejected Disposition = "rejected"
)

// Pipeline consumes the notification queue one message at a time.
type Pipeline struct {
	cfg        Config
	dial       Dialer
	router     Dispatcher
	hooks      Hooks
	logger     *slog.Logger
	propagator propagation.TextMapPropagator
	now        func() time.Time

	conn       Connection
	ch         Channel
	deliveries <-chan amqp.Delivery

	// inflight is held while a message is processed so Shutdown waits for it.
	inflight     sync.Mutex
	stopping     atomic.Bool
	shutdownOnce sync.Once
	shutdownErr  error
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithDialer replaces DialAMQP.
func WithDialer(d Dialer) Option {
	return func(p *Pipeline) { p.dial = d }
}

// WithPropagator sets how a parent span context is read from message headers.
func WithPropagator(tp propagation.TextMapPropagator) Option {
	return func(p *Pipeline) { p.propagator = tp }
}

// WithClock replaces time.Now for duration measurement.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline. Call Connect before Run.
func New(cfg Config, router Dispatcher, hooks Hooks, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		dial:       DialAMQP,
		router:     router,
		hooks:      hooks,
		logger:     logger,
		propagator: propagation.TraceContext{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Connect dials the broker, declares the exchange, queue and bindings, limits
// prefetch and starts a manual-ack consumer. Any failure is a *ConnectionError
// and leaves nothing open.
func (p *Pipeline) Connect(ctx context.Context) error {
	if p.deliveries != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return &ConnectionError{Op: "dial", Err: err}
	}

	conn, err := p.dial(p.cfg.URL)
	if err != nil {
		return p.connectFailed(nil, nil, "dial", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		return p.connectFailed(conn, nil, "open channel", err)
	}

	if err := ch.ExchangeDeclare(p.cfg.Exchange, p.cfg.ExchangeType, true, false, false, false, nil); err != nil {
		return p.connectFailed(conn, ch, "declare exchange", err)
	}

	args := amqp.Table{
		"x-message-ttl": int32(p.cfg.MessageTTL / time.Millisecond),
		"x-max-length":  int32(p.cfg.MaxLength),
	}
	if _, err := ch.QueueDeclare(p.cfg.Queue, true, false, false, false, args); err != nil {
		return p.connectFailed(conn, ch, "declare queue", err)
	}

	for _, key := range p.cfg.RoutingKeys {
		if err := ch.QueueBind(p.cfg.Queue, string(key), p.cfg.Exchange, false, nil); err != nil {
			return p.connectFailed(conn, ch, fmt.Sprintf("bind %q", key), err)
		}
	}

	if err := ch.Qos(p.cfg.Prefetch, 0, false); err != nil {
		return p.connectFailed(conn, ch, "set prefetch", err)
	}

	deliveries, err := ch.Consume(p.cfg.Queue, p.cfg.ConsumerTag, false, false, false, false, nil)
	if err != nil {
		return p.connectFailed(conn, ch, "consume", err)
	}

	p.conn, p.ch, p.deliveries = conn, ch, deliveries
	p.hooks.SetConnectionStatus(true)
	p.logger.Info("connected to rabbitmq",
		"queue", p.cfg.Queue,
		"exchange", p.cfg.Exchange,
		"routing_keys", p.cfg.RoutingKeys,
		"prefetch", p.cfg.Prefetch,
	)
	return nil
}

func (p *Pipeline) connectFailed(conn Connection, ch Channel, op string, err error) error {
	if ch != nil {
		if cerr := ch.Close(); cerr != nil {
			p.logger.Warn("error closing channel", "error", cerr)
		}
	}
	if conn != nil {
		if cerr := conn.Close(); cerr != nil {
			p.logger.Warn("error closing connection", "error", cerr)
		}
	}
	p.hooks.SetConnectionStatus(false)
	cerr := &ConnectionError{Op: op, Err: err}
	p.logger.Error("error connecting to rabbitmq", "error", cerr)
	return cerr
}

// Run processes deliveries until ctx is done or Shutdown is called. The next
// delivery is not read before the current one is settled.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.deliveries == nil {
		return ErrNotConnected
	}
	p.logger.Info("waiting for messages", "queue", p.cfg.Queue)

	for {
		if p.stopping.Load() {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-p.deliveries:
			if !ok {
				if p.stopping.Load() {
					return nil
				}
				p.hooks.SetConnectionStatus(false)
				p.logger.Error("delivery stream closed by broker")
				return ErrDeliveryStreamClosed
			}
			p.inflight.Lock()
			if p.stopping.Load() {
				// Unsettled deliveries are returned to the queue when the channel closes.
				p.inflight.Unlock()
				return nil
			}
			p.Intake(ctx, NewMessage(d))
			p.inflight.Unlock()
		}
	}
}

// Intake processes one message and settles it exactly once:
//   - undecodable body: rejected without requeue
//   - handler success or unknown routing key: acked
//   - delivery failure: requeued
//   - panic: rejected without requeue
func (p *Pipeline) Intake(ctx context.Context, msg *Message) (disp Disposition) {
	ctx = context.WithoutCancel(ctx)
	start := p.now()
	traceID := msg.HeaderTraceID()

	defer func() {
		if r := recover(); r != nil {
			err := &HandlerPanicError{RoutingKey: msg.RoutingKey, Value: r}
			p.hooks.IncrementError(ErrorKindHandlerPanic)
			p.logger.Error("error processing message",
				"error", err,
				"routing_key", msg.RoutingKey,
				"trace_id", traceID,
				"stack", string(debug.Stack()),
			)
			// The acknowledger itself may have panicked after the token was spent.
			if d, ok := msg.token.taken(); ok {
				disp = d
				return
			}
			disp = p.settle(msg, Rejected)
		}
	}()

	ev, err := events.Decode(msg.RoutingKey, msg.Body)
	if err != nil {
		perr := &PoisonMessageError{RoutingKey: msg.RoutingKey, Err: err}
		p.hooks.IncrementError(ErrorKindParse)
		p.logger.Error("error processing message",
			"error", perr,
			"routing_key", msg.RoutingKey,
			"trace_id", traceID,
		)
		return p.settle(msg, Rejected)
	}

	if traceID == "" {
		traceID = ev.TraceID()
	}

	p.hooks.IncrementReceived()
	p.logger.Info("message received",
		"routing_key", msg.RoutingKey,
		"transaction_id", ev.Identifier(),
		"trace_id", traceID,
		"redelivered", msg.Redelivered,
	)

	parent := p.propagator.Extract(ctx, headerCarrier(msg.Headers))
	spanCtx, span := p.hooks.StartSpan(parent, spanName,
		attribute.String("notification.routing_key", msg.RoutingKey),
		attribute.String("transaction.id", ev.Identifier()),
		attribute.String("trace.parent_id", traceID),
	)
	spanCtx = events.WithCorrelationID(spanCtx, traceID)

	result := p.route(spanCtx, span, ev)
	p.hooks.ObserveProcessingDuration(p.now().Sub(start))

	switch {
	case result.UnknownKey():
		p.hooks.IncrementSent(msg.RoutingKey, OutcomeUnknownRoutingKey)
		return p.settle(msg, Acked)
	case result.Success:
		p.hooks.IncrementSent(msg.RoutingKey, OutcomeSuccess)
		return p.settle(msg, Acked)
	default:
		p.hooks.IncrementSent(msg.RoutingKey, OutcomeFailed)
		p.logger.Warn("notification delivery failed, requeueing",
			"routing_key", msg.RoutingKey,
			"transaction_id", ev.Identifier(),
			"trace_id", traceID,
			"reason", result.Reason,
		)
		return p.settle(msg, Requeued)
	}
}

// route runs the dispatcher inside span and always ends it.
func (p *Pipeline) route(ctx context.Context, span trace.Span, ev events.Event) dispatch.Result {
	defer span.End()

	res := p.router.Dispatch(ctx, ev)
	span.SetAttributes(
		attribute.Bool("notification.success", res.Success),
		attribute.Bool("notification.notified", res.Notified),
	)
	if !res.Success && !res.UnknownKey() {
		span.SetStatus(codes.Error, res.Reason)
	}
	return res
}

func (p *Pipeline) settle(msg *Message, d Disposition) Disposition {
	var err error
	switch d {
	case Acked:
		err = msg.token.ack()
	case Requeued:
		err = msg.token.nack(true)
	case Rejected:
		err = msg.token.nack(false)
	}
	if err != nil {
		p.hooks.IncrementError(ErrorKindSettle)
		p.logger.Error("failed to settle message",
			"routing_key", msg.RoutingKey,
			"disposition", string(d),
			"error", err,
		)
	}
	return d
}

// Shutdown stops Run after the in-flight message is settled, then closes the
// channel and the connection in that order. Calls after the first are no-ops.
func (p *Pipeline) Shutdown() error {
	p.shutdownOnce.Do(func() {
		p.logger.Info("shutting down notification consumer")
		p.stopping.Store(true)

		p.inflight.Lock()
		defer p.inflight.Unlock()

		var errs []error
		if p.ch != nil {
			if err := p.ch.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing channel: %w", err))
			}
		}
		if p.conn != nil {
			if err := p.conn.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing connection: %w", err))
			}
		}
		p.hooks.SetConnectionStatus(false)
		p.shutdownErr = errors.Join(errs...)
		p.logger.Info("notification consumer shut down")
	})
	return p.shutdownErr
}
