package dispatch

import (
	"context"
	"log/slog"

	"github.com/shaharia-lab/finance-notifier/internal/events"
)

// Handlers holds one stateless handler per event type.
type Handlers struct {
	channel   DeliveryChannel
	threshold float64
	logger    *slog.Logger
}

// NewHandlers creates the handler set. Transactions strictly above threshold
// trigger a high-value alert.
func NewHandlers(channel DeliveryChannel, threshold float64, logger *slog.Logger) *Handlers {
	return &Handlers{channel: channel, threshold: threshold, logger: logger}
}

// TransactionCreated alerts the user about high-value transactions.
func (h *Handlers) TransactionCreated(ctx context.Context, e events.TransactionCreated) Result {
	if e.Amount <= h.threshold {
		return skipped()
	}

	h.logger.Info("high amount transaction detected",
		"transaction_id", e.TransactionID,
		"amount", e.Amount,
		"threshold", h.threshold,
	)

	if e.UserEmail == "" {
		h.logger.Warn("user email not provided, skipping email notification",
			"transaction_id", e.TransactionID)
		return skipped()
	}
	return fromSend(h.channel.SendHighAmountAlert(ctx, e.UserEmail, e))
}

// BudgetExceeded alerts the user that a category budget was crossed.
func (h *Handlers) BudgetExceeded(ctx context.Context, e events.BudgetExceeded) Result {
	h.logger.Info("budget exceeded event received",
		"user_id", e.UserID,
		"category", e.Category,
	)

	if e.UserEmail == "" {
		return skipped()
	}
	return fromSend(h.channel.SendBudgetAlert(ctx, e.UserEmail, e))
}

// GoalAchieved is acknowledged without notifying; no channel exists for it yet.
func (h *Handlers) GoalAchieved(_ context.Context, e events.GoalAchieved) Result {
	h.logger.Info("goal achieved event received",
		"user_id", e.UserID,
		"goal", e.GoalName,
	)
	return skipped()
}
