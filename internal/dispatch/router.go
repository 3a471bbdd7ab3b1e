package dispatch

import (
	"context"
	"log/slog"

	"github.com/shaharia-lab/finance-notifier/internal/events"
)

// Router maps each event variant to its handler.
type Router struct {
	handlers *Handlers
	logger   *slog.Logger
}

// NewRouter creates a Router over the given handlers.
func NewRouter(h *Handlers, logger *slog.Logger) *Router {
	return &Router{handlers: h, logger: logger}
}

// Dispatch runs the handler for ev. Unknown routing keys are not an error:
// they produce a non-success result with ReasonUnknownRoutingKey.
func (r *Router) Dispatch(ctx context.Context, ev events.Event) Result {
	switch e := ev.(type) {
	case events.TransactionCreated:
		return r.handlers.TransactionCreated(ctx, e)
	case events.BudgetExceeded:
		return r.handlers.BudgetExceeded(ctx, e)
	case events.GoalAchieved:
		return r.handlers.GoalAchieved(ctx, e)
	case events.Unknown:
		r.logger.Warn("unknown routing key", "routing_key", e.RawKey)
		return Result{Success: false, Reason: ReasonUnknownRoutingKey}
	default:
		r.logger.Warn("unhandled event type", "routing_key", string(ev.Key()))
		return Result{Success: false, Reason: ReasonUnknownRoutingKey}
	}
}
