package consumer_test

import (
	"context"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/shaharia-lab/finance-notifier/internal/consumer"
	"github.com/shaharia-lab/finance-notifier/internal/dispatch"
	"github.com/shaharia-lab/finance-notifier/internal/events"
)

// fakeAcker records settlement calls on a delivery.
type fakeAcker struct {
	mu      sync.Mutex
	acks    int
	nacks   int
	requeue []bool
	err     error

	// panicOnAck makes Ack panic with this value instead of returning.
	panicOnAck any
}

func (a *fakeAcker) Ack(uint64, bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.panicOnAck != nil {
		panic(a.panicOnAck)
	}
	a.acks++
	return a.err
}

func (a *fakeAcker) Nack(_ uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks++
	a.requeue = append(a.requeue, requeue)
	return a.err
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func delivery(acker amqp.Acknowledger, key, body string, headers amqp.Table) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger: acker,
		DeliveryTag:  1,
		RoutingKey:   key,
		Body:         []byte(body),
		Headers:      headers,
	}
}

type sentCall struct {
	key     string
	outcome consumer.Outcome
}

// fakeHooks captures metric calls and starts noop spans.
type fakeHooks struct {
	mu         sync.Mutex
	received   int
	sent       []sentCall
	errors     []consumer.ErrorKind
	durations  []time.Duration
	status     []bool
	spans      []string
	spanAttrs  []attribute.KeyValue
	spanParent []trace.SpanContext
	tracer     trace.Tracer
}

func newFakeHooks() *fakeHooks {
	return &fakeHooks{tracer: noop.NewTracerProvider().Tracer("test")}
}

func (h *fakeHooks) IncrementReceived() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received++
}

func (h *fakeHooks) IncrementSent(key string, outcome consumer.Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, sentCall{key: key, outcome: outcome})
}

func (h *fakeHooks) ObserveProcessingDuration(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.durations = append(h.durations, d)
}

func (h *fakeHooks) IncrementError(kind consumer.ErrorKind) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, kind)
}

func (h *fakeHooks) SetConnectionStatus(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = append(h.status, connected)
}

func (h *fakeHooks) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	h.mu.Lock()
	h.spans = append(h.spans, name)
	h.spanAttrs = append(h.spanAttrs, attrs...)
	h.spanParent = append(h.spanParent, trace.SpanContextFromContext(ctx))
	h.mu.Unlock()
	return h.tracer.Start(ctx, name)
}

func (h *fakeHooks) lastStatus() (bool, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.status) == 0 {
		return false, false
	}
	return h.status[len(h.status)-1], true
}

// stubDispatcher returns a fixed result, or panics when panicWith is set.
type stubDispatcher struct {
	mu        sync.Mutex
	result    dispatch.Result
	panicWith any
	got       []events.Event
	traceIDs  []string
}

func (d *stubDispatcher) Dispatch(ctx context.Context, ev events.Event) dispatch.Result {
	d.mu.Lock()
	d.got = append(d.got, ev)
	d.traceIDs = append(d.traceIDs, events.CorrelationID(ctx))
	d.mu.Unlock()
	if d.panicWith != nil {
		panic(d.panicWith)
	}
	return d.result
}

type declaredQueue struct {
	name    string
	durable bool
	args    amqp.Table
}

type binding struct {
	queue, key, exchange string
}

// fakeBroker implements consumer.Connection and consumer.Channel and
// records the topology it was asked to declare.
type fakeBroker struct {
	mu sync.Mutex

	exchanges  []string
	exchType   string
	queues     []declaredQueue
	bindings   []binding
	prefetch   int
	consumeTag string
	autoAck    bool
	closeOrder []string
	deliveries chan amqp.Delivery

	failOn string
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{deliveries: make(chan amqp.Delivery, 16)}
}

func (b *fakeBroker) dial(string) (consumer.Connection, error) {
	if b.failOn == "dial" {
		return nil, errors.New("connection refused")
	}
	return brokerConn{b}, nil
}

func (b *fakeBroker) fail(op string) error {
	if b.failOn == op {
		return errors.New(op + " failed")
	}
	return nil
}

type brokerConn struct{ b *fakeBroker }

func (c brokerConn) Channel() (consumer.Channel, error) {
	if err := c.b.fail("channel"); err != nil {
		return nil, err
	}
	return c.b, nil
}

func (c brokerConn) Close() error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	c.b.closeOrder = append(c.b.closeOrder, "connection")
	return nil
}

func (b *fakeBroker) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exchanges = append(b.exchanges, name)
	b.exchType = kind
	return b.fail("exchange")
}

func (b *fakeBroker) QueueDeclare(name string, durable, _, _, _ bool, args amqp.Table) (amqp.Queue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queues = append(b.queues, declaredQueue{name: name, durable: durable, args: args})
	return amqp.Queue{Name: name}, b.fail("queue")
}

func (b *fakeBroker) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bindings = append(b.bindings, binding{queue: name, key: key, exchange: exchange})
	return b.fail("bind")
}

func (b *fakeBroker) Qos(prefetchCount, _ int, _ bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prefetch = prefetchCount
	return b.fail("qos")
}

func (b *fakeBroker) Consume(_, tag string, autoAck, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consumeTag = tag
	b.autoAck = autoAck
	if err := b.fail("consume"); err != nil {
		return nil, err
	}
	return b.deliveries, nil
}

func (b *fakeBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeOrder = append(b.closeOrder, "channel")
	return nil
}

func (b *fakeBroker) closed() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.closeOrder...)
}
