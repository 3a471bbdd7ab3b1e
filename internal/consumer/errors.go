package consumer

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadySettled is returned when a delivery is acked or nacked a second time.
	ErrAlreadySettled = errors.New("delivery already settled")
	// ErrNotConnected is returned by Run before a successful Connect.
	ErrNotConnected = errors.New("pipeline is not connected")
	// ErrDeliveryStreamClosed is returned by Run when the broker stops delivering.
	ErrDeliveryStreamClosed = errors.New("broker closed the delivery stream")

	errNoAcknowledger = errors.New("delivery has no acknowledger")
)

// ConnectionError reports a failure to reach the broker or declare topology.
// It is fatal at startup.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("broker %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying broker error.
func (e *ConnectionError) Unwrap() error { return e.Err }

// PoisonMessageError reports a body that can never be processed.
type PoisonMessageError struct {
	RoutingKey string
	Err        error
}

func (e *PoisonMessageError) Error() string {
	return fmt.Sprintf("poison message on %q: %v", e.RoutingKey, e.Err)
}

// Unwrap returns the decode error.
func (e *PoisonMessageError) Unwrap() error { return e.Err }

// HandlerPanicError wraps a panic recovered while processing a message.
type HandlerPanicError struct {
	RoutingKey string
	Value      any
}

func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("panic while processing %q: %v", e.RoutingKey, e.Value)
}
