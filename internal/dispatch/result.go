// Package dispatch routes decoded events to their notification handlers.
package dispatch

import (
	"context"

	"github.com/shaharia-lab/finance-notifier/internal/events"
	"github.com/shaharia-lab/finance-notifier/internal/notification"
)

// ReasonUnknownRoutingKey marks a result produced for an unbound routing key.
const ReasonUnknownRoutingKey = "unknown_routing_key"

// Result is the outcome of handling one event.
type Result struct {
	Success  bool   `json:"success"`
	Notified bool   `json:"notified"`
	Reason   string `json:"reason,omitempty"`
}

// UnknownKey reports whether the event had no handler.
func (r Result) UnknownKey() bool { return r.Reason == ReasonUnknownRoutingKey }

func skipped() Result { return Result{Success: true, Notified: false} }

// fromSend forwards a channel outcome without reinterpreting it.
func fromSend(r notification.SendResult) Result {
	if r.Success {
		return Result{Success: true, Notified: true}
	}
	return Result{Success: false, Reason: r.FailureReason()}
}

// DeliveryChannel performs the actual alert delivery.
type DeliveryChannel interface {
	SendHighAmountAlert(ctx context.Context, recipient string, tx events.TransactionCreated) notification.SendResult
	SendBudgetAlert(ctx context.Context, recipient string, b events.BudgetExceeded) notification.SendResult
}
