package storage

import (
	"context"
	"time"
)

// Delivery statuses recorded in the log.
const (
	DeliveryStatusSent   = "sent"
	DeliveryStatusFailed = "failed"
)

// DeliveryLogEntry records a single notification delivery attempt.
type DeliveryLogEntry struct {
	ID         int64     `json:"id"`
	RoutingKey string    `json:"routing_key"`
	EntityID   string    `json:"entity_id"`
	Recipient  string    `json:"recipient"`
	Provider   string    `json:"provider"`
	Subject    string    `json:"subject"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason"`
	MessageID  string    `json:"message_id"`
	TraceID    string    `json:"trace_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// DeliveryStore persists the delivery audit log. It is write-mostly and never
// consulted when deciding whether a message is acknowledged.
type DeliveryStore interface {
	// LogDelivery records a delivery attempt.
	LogDelivery(ctx context.Context, entry DeliveryLogEntry) error
	// ListDeliveries returns the most recent entries, up to limit.
	ListDeliveries(ctx context.Context, limit int) ([]DeliveryLogEntry, error)
	// PruneBefore deletes entries created before cutoff and returns how many were removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
