package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaharia-lab/finance-notifier/internal/events"
	"github.com/shaharia-lab/finance-notifier/internal/storage"
)

// ReasonNotConfigured is reported when no SMTP credentials are available.
const ReasonNotConfigured = "not_configured"

const sendTimeout = 30 * time.Second

// SendResult is the outcome of a single delivery attempt. Exactly one of
// MessageID (on success), Reason or Error (on failure) is set.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error,omitempty"`
}

// FailureReason returns Reason or, when empty, Error.
func (r SendResult) FailureReason() string {
	if r.Reason != "" {
		return r.Reason
	}
	return r.Error
}

// EmailChannel sends high-value transaction and budget alerts by email.
// A channel built without SMTP credentials stays usable and reports
// ReasonNotConfigured for every send.
type EmailChannel struct {
	provider Provider
	currency string
	store    storage.DeliveryStore
	logger   *slog.Logger
}

// ChannelOption customizes an EmailChannel.
type ChannelOption func(*EmailChannel)

// WithProvider replaces the SMTP provider derived from the config.
func WithProvider(p Provider) ChannelOption {
	return func(c *EmailChannel) { c.provider = p }
}

// WithDeliveryStore records every attempt in store.
func WithDeliveryStore(store storage.DeliveryStore) ChannelOption {
	return func(c *EmailChannel) { c.store = store }
}

// WithCurrency sets the currency symbol used when formatting amounts.
func WithCurrency(symbol string) ChannelOption {
	return func(c *EmailChannel) { c.currency = symbol }
}

// NewEmailChannel creates an EmailChannel from cfg.
func NewEmailChannel(cfg SMTPConfig, logger *slog.Logger, opts ...ChannelOption) *EmailChannel {
	c := &EmailChannel{currency: "R$", logger: logger}
	if cfg.Configured() {
		c.provider = NewSMTPProvider(cfg)
		logger.Info("email transport initialized", "host", cfg.Host, "port", cfg.Port)
	} else {
		logger.Warn("SMTP credentials not configured, email notifications disabled")
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendHighAmountAlert notifies recipient about a transaction above the alert threshold.
func (c *EmailChannel) SendHighAmountAlert(ctx context.Context, recipient string, tx events.TransactionCreated) SendResult {
	view := alertView{
		Title:  "Transaction Alert",
		Intro:  "A high-value transaction was detected on your account:",
		Accent: "#dc2626",
		Rows: []row{
			{Label: "Description", Value: tx.Description},
			{Label: "Amount", Value: formatMoney(c.currency, tx.Amount)},
			{Label: "Category", Value: tx.Category},
			{Label: "Date", Value: formatDate(tx.Date)},
		},
		Footer: "If you do not recognize this transaction, contact us immediately.",
	}
	return c.send(ctx, tx, recipient, subjectHighAmount, view)
}

// SendBudgetAlert notifies recipient that a category budget was exceeded.
func (c *EmailChannel) SendBudgetAlert(ctx context.Context, recipient string, b events.BudgetExceeded) SendResult {
	view := alertView{
		Title:  "Budget Alert",
		Intro:  "You have reached " + formatPercent(b.Percentage) + " of your monthly budget:",
		Accent: "#d97706",
		Rows: []row{
			{Label: "Category", Value: b.Category},
			{Label: "Current spending", Value: formatMoney(c.currency, b.CurrentAmount)},
			{Label: "Budget", Value: formatMoney(c.currency, b.BudgetLimit)},
		},
	}
	return c.send(ctx, b, recipient, subjectBudget, view)
}

// SendTest delivers a fixed message to recipient to verify SMTP settings.
func (c *EmailChannel) SendTest(ctx context.Context, recipient string) SendResult {
	view := alertView{
		Title:  "Test Notification",
		Intro:  "This is a test notification from the finance notification service.",
		Accent: "#2563eb",
		Footer: "Your SMTP configuration is working correctly.",
	}
	return c.send(ctx, events.Unknown{RawKey: "test"}, recipient, subjectTest, view)
}

func (c *EmailChannel) send(ctx context.Context, ev events.Event, recipient, subject string, view alertView) SendResult {
	logger := c.logger.With(
		"routing_key", string(ev.Key()),
		"entity_id", ev.Identifier(),
		"user_email", recipient,
	)

	if c.provider == nil {
		logger.Warn("email transport not configured, skipping email")
		res := SendResult{Reason: ReasonNotConfigured}
		c.record(ctx, ev, recipient, "", subject, res)
		return res
	}

	html, text, err := view.render()
	if err != nil {
		logger.Error("error rendering email", "error", err)
		res := SendResult{Error: err.Error()}
		c.record(ctx, ev, recipient, c.provider.Name(), subject, res)
		return res
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	id, err := c.provider.Send(sendCtx, Message{
		Subject: subject,
		Text:    text,
		HTML:    html,
		To:      []string{recipient},
	})
	var res SendResult
	if err != nil {
		logger.Error("error sending email", "error", err)
		res = SendResult{Error: err.Error()}
	} else {
		logger.Info("alert email sent", "subject", subject, "message_id", id)
		res = SendResult{Success: true, MessageID: id}
	}
	c.record(ctx, ev, recipient, c.provider.Name(), subject, res)
	return res
}

// record writes the attempt to the delivery log. Failures are logged only.
func (c *EmailChannel) record(ctx context.Context, ev events.Event, recipient, provider, subject string, res SendResult) {
	if c.store == nil {
		return
	}
	entry := storage.DeliveryLogEntry{
		RoutingKey: string(ev.Key()),
		EntityID:   ev.Identifier(),
		Recipient:  recipient,
		Provider:   provider,
		Subject:    subject,
		Status:     storage.DeliveryStatusSent,
		MessageID:  res.MessageID,
		TraceID:    events.CorrelationID(ctx),
		CreatedAt:  time.Now().UTC(),
	}
	if entry.TraceID == "" {
		entry.TraceID = ev.TraceID()
	}
	if !res.Success {
		entry.Status = storage.DeliveryStatusFailed
		entry.Reason = res.FailureReason()
	}
	if err := c.store.LogDelivery(context.WithoutCancel(ctx), entry); err != nil {
		c.logger.Warn("failed to record delivery", "routing_key", entry.RoutingKey, "error", err)
	}
}
