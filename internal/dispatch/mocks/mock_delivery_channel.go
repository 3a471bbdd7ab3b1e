package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/finance-notifier/internal/events"
	"github.com/shaharia-lab/finance-notifier/internal/notification"
)

// MockDeliveryChannel is a mock implementation of dispatch.DeliveryChannel.
type MockDeliveryChannel struct {
	mock.Mock
}

//nolint:revive
func (m *MockDeliveryChannel) SendHighAmountAlert(ctx context.Context, recipient string, tx events.TransactionCreated) notification.SendResult {
	args := m.Called(ctx, recipient, tx)
	return args.Get(0).(notification.SendResult)
}

//nolint:revive
func (m *MockDeliveryChannel) SendBudgetAlert(ctx context.Context, recipient string, b events.BudgetExceeded) notification.SendResult {
	args := m.Called(ctx, recipient, b)
	return args.Get(0).(notification.SendResult)
}
