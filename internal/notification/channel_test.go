package notification_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/finance-notifier/internal/events"
	"github.com/shaharia-lab/finance-notifier/internal/notification"
	"github.com/shaharia-lab/finance-notifier/internal/storage"
)

// --- stubs ---

type stubProvider struct {
	sent []notification.Message
	id   string
	err  error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Send(_ context.Context, msg notification.Message) (string, error) {
	p.sent = append(p.sent, msg)
	if p.err != nil {
		return "", p.err
	}
	return p.id, nil
}

type stubStore struct {
	entries []storage.DeliveryLogEntry
	err     error
}

func (s *stubStore) LogDelivery(_ context.Context, e storage.DeliveryLogEntry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *stubStore) ListDeliveries(_ context.Context, _ int) ([]storage.DeliveryLogEntry, error) {
	return s.entries, nil
}

func (s *stubStore) PruneBefore(_ context.Context, _ time.Time) (int64, error) { return 0, nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func configuredSMTP() notification.SMTPConfig {
	return notification.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "user",
		Password: "secret",
		FromAddr: "noreply@example.com",
	}
}

func highAmountTx() events.TransactionCreated {
	return events.TransactionCreated{
		Common:      events.Common{TransactionID: "tx-1", Trace: "body-trace"},
		Amount:      1500,
		Description: "Laptop",
		Category:    "electronics",
		Date:        "2024-03-01T10:30:00Z",
		UserEmail:   "a@b.com",
	}
}

// --- tests ---

func TestEmailChannel_NotConfigured(t *testing.T) {
	store := &stubStore{}
	ch := notification.NewEmailChannel(notification.SMTPConfig{Host: "smtp.example.com"}, discardLogger(),
		notification.WithDeliveryStore(store))

	res := ch.SendHighAmountAlert(context.Background(), "a@b.com", highAmountTx())

	assert.False(t, res.Success)
	assert.Equal(t, notification.ReasonNotConfigured, res.Reason)
	assert.Empty(t, res.Error)

	require.Len(t, store.entries, 1)
	assert.Equal(t, storage.DeliveryStatusFailed, store.entries[0].Status)
	assert.Equal(t, notification.ReasonNotConfigured, store.entries[0].Reason)
}

func TestEmailChannel_HighAmountAlert(t *testing.T) {
	provider := &stubProvider{id: "<msg-1@example.com>"}
	store := &stubStore{}
	ch := notification.NewEmailChannel(configuredSMTP(), discardLogger(),
		notification.WithProvider(provider),
		notification.WithDeliveryStore(store))

	res := ch.SendHighAmountAlert(context.Background(), "a@b.com", highAmountTx())

	require.True(t, res.Success)
	assert.Equal(t, "<msg-1@example.com>", res.MessageID)

	require.Len(t, provider.sent, 1)
	msg := provider.sent[0]
	assert.Equal(t, []string{"a@b.com"}, msg.To)
	assert.Equal(t, notification.SubjectPrefix+"High-Value Transaction", msg.Subject)
	assert.Contains(t, msg.Text, "Amount: R$ 1500.00")
	assert.Contains(t, msg.Text, "Date: 01/03/2024 10:30")
	assert.Contains(t, msg.HTML, "Laptop")

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, "transaction.created", entry.RoutingKey)
	assert.Equal(t, "tx-1", entry.EntityID)
	assert.Equal(t, "stub", entry.Provider)
	assert.Equal(t, storage.DeliveryStatusSent, entry.Status)
	assert.Equal(t, "body-trace", entry.TraceID)
}

func TestEmailChannel_CorrelationIDFromContextWins(t *testing.T) {
	store := &stubStore{}
	ch := notification.NewEmailChannel(configuredSMTP(), discardLogger(),
		notification.WithProvider(&stubProvider{id: "x"}),
		notification.WithDeliveryStore(store))

	ctx := events.WithCorrelationID(context.Background(), "header-trace")
	ch.SendHighAmountAlert(ctx, "a@b.com", highAmountTx())

	require.Len(t, store.entries, 1)
	assert.Equal(t, "header-trace", store.entries[0].TraceID)
}

func TestEmailChannel_BudgetAlert(t *testing.T) {
	provider := &stubProvider{id: "id"}
	ch := notification.NewEmailChannel(configuredSMTP(), discardLogger(),
		notification.WithProvider(provider),
		notification.WithCurrency("$"))

	res := ch.SendBudgetAlert(context.Background(), "b@c.com", events.BudgetExceeded{
		Category:      "food",
		Percentage:    110,
		CurrentAmount: 550.5,
		BudgetLimit:   500,
	})

	require.True(t, res.Success)
	require.Len(t, provider.sent, 1)
	text := provider.sent[0].Text
	assert.Contains(t, text, "You have reached 110% of your monthly budget")
	assert.Contains(t, text, "Current spending: $ 550.50")
	assert.Contains(t, text, "Budget: $ 500.00")
}

func TestEmailChannel_TransportError(t *testing.T) {
	provider := &stubProvider{err: errors.New("connection refused")}
	store := &stubStore{}
	ch := notification.NewEmailChannel(configuredSMTP(), discardLogger(),
		notification.WithProvider(provider),
		notification.WithDeliveryStore(store))

	res := ch.SendBudgetAlert(context.Background(), "b@c.com", events.BudgetExceeded{})

	assert.False(t, res.Success)
	assert.Empty(t, res.Reason)
	assert.Equal(t, "connection refused", res.Error)
	assert.Equal(t, "connection refused", res.FailureReason())

	require.Len(t, store.entries, 1)
	assert.Equal(t, storage.DeliveryStatusFailed, store.entries[0].Status)
}

func TestEmailChannel_StoreErrorDoesNotFailDelivery(t *testing.T) {
	ch := notification.NewEmailChannel(configuredSMTP(), discardLogger(),
		notification.WithProvider(&stubProvider{id: "id"}),
		notification.WithDeliveryStore(&stubStore{err: errors.New("db locked")}))

	res := ch.SendHighAmountAlert(context.Background(), "a@b.com", highAmountTx())
	assert.True(t, res.Success)
}

func TestEmailChannel_SendTest(t *testing.T) {
	provider := &stubProvider{id: "id"}
	ch := notification.NewEmailChannel(configuredSMTP(), discardLogger(), notification.WithProvider(provider))

	res := ch.SendTest(context.Background(), "ops@example.com")

	require.True(t, res.Success)
	require.Len(t, provider.sent, 1)
	assert.Equal(t, notification.SubjectPrefix+"Test Notification", provider.sent[0].Subject)
}
