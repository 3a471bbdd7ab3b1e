package consumer

import (
	"fmt"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"
)

// TraceHeader is the message header carrying the publisher's correlation id.
const TraceHeader = "trace_id"

// Message is a delivery in flight. It owns a one-shot settlement: the first
// ack or nack consumes it and any later attempt fails with ErrAlreadySettled.
type Message struct {
	RoutingKey  string
	Body        []byte
	Headers     amqp.Table
	Redelivered bool

	token *settlement
}

// NewMessage wraps a broker delivery.
func NewMessage(d amqp.Delivery) *Message {
	return &Message{
		RoutingKey:  d.RoutingKey,
		Body:        d.Body,
		Headers:     d.Headers,
		Redelivered: d.Redelivered,
		token:       &settlement{acker: d.Acknowledger, tag: d.DeliveryTag},
	}
}

// HeaderTraceID returns the correlation id from the message headers, or "".
func (m *Message) HeaderTraceID() string {
	v, ok := m.Headers[TraceHeader]
	if !ok || v == nil {
		return ""
	}
	switch id := v.(type) {
	case string:
		return id
	case []byte:
		return string(id)
	default:
		return fmt.Sprint(id)
	}
}

type settlement struct {
	acker amqp.Acknowledger
	tag   uint64
	used  atomic.Bool
	disp  Disposition
}

func (s *settlement) take(d Disposition) error {
	if s == nil || s.acker == nil {
		return errNoAcknowledger
	}
	if !s.used.CompareAndSwap(false, true) {
		return ErrAlreadySettled
	}
	s.disp = d
	return nil
}

// taken reports the disposition the token was consumed with, if any.
func (s *settlement) taken() (Disposition, bool) {
	if s == nil || !s.used.Load() {
		return "", false
	}
	return s.disp, true
}

func (s *settlement) ack() error {
	if err := s.take(Acked); err != nil {
		return err
	}
	return s.acker.Ack(s.tag, false)
}

func (s *settlement) nack(requeue bool) error {
	d := Rejected
	if requeue {
		d = Requeued
	}
	if err := s.take(d); err != nil {
		return err
	}
	return s.acker.Nack(s.tag, false, requeue)
}

// headerCarrier adapts AMQP headers to an OpenTelemetry TextMapCarrier.
type headerCarrier amqp.Table

func (c headerCarrier) Get(key string) string {
	s, _ := c[key].(string)
	return s
}

func (c headerCarrier) Set(key, value string) { c[key] = value }

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
