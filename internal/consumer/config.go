package consumer

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaharia-lab/finance-notifier/internal/events"
)

// Broker topology shared with the transaction publisher.
const (
	DefaultExchange     = "transactions_exchange"
	DefaultExchangeType = "topic"
	DefaultQueue        = "notification_queue"
	DefaultMessageTTL   = 24 * time.Hour
	DefaultMaxLength    = 10000
	DefaultPrefetch     = 1
)

// Config describes the broker endpoint and the topology the pipeline declares.
type Config struct {
	URL          string
	Exchange     string
	ExchangeType string
	Queue        string
	RoutingKeys  []events.RoutingKey
	// MessageTTL and MaxLength are enforced by the broker; the oldest message
	// is dropped when MaxLength is exceeded.
	MessageTTL  time.Duration
	MaxLength   int
	Prefetch    int
	ConsumerTag string
}

// DefaultConfig returns the notification queue topology for the broker at url.
func DefaultConfig(url string) Config {
	return Config{
		URL:          url,
		Exchange:     DefaultExchange,
		ExchangeType: DefaultExchangeType,
		Queue:        DefaultQueue,
		RoutingKeys:  events.BoundKeys(),
		MessageTTL:   DefaultMessageTTL,
		MaxLength:    DefaultMaxLength,
		Prefetch:     DefaultPrefetch,
		ConsumerTag:  "notification-service-" + uuid.NewString(),
	}
}
