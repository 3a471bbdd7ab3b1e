// Package events defines the closed set of domain events consumed from the
// transactions exchange and decodes broker messages into them.
package events

// RoutingKey identifies the event type of a broker message.
type RoutingKey string

// Routing keys bound to the notification queue.
const (
	KeyTransactionCreated RoutingKey = "transaction.created"
	KeyBudgetExceeded     RoutingKey = "budget.exceeded"
	KeyGoalAchieved       RoutingKey = "goal.achieved"
)

// BoundKeys lists the routing keys the notification queue is bound to.
func BoundKeys() []RoutingKey {
	return []RoutingKey{KeyTransactionCreated, KeyBudgetExceeded, KeyGoalAchieved}
}

// Event is implemented only by the variants in this package:
// TransactionCreated, BudgetExceeded, GoalAchieved and Unknown.
type Event interface {
	// Key returns the routing key the event was delivered with.
	Key() RoutingKey
	// Identifier returns the transaction id, falling back to the user id.
	Identifier() string
	// TraceID returns the correlation id carried in the body, if any.
	TraceID() string

	sealed()
}

// Common holds the fields shared by every event body.
type Common struct {
	TransactionID string `json:"transaction_id,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	Trace         string `json:"trace_id,omitempty"`
}

// Identifier returns TransactionID, or UserID when the former is empty.
func (c Common) Identifier() string {
	if c.TransactionID != "" {
		return c.TransactionID
	}
	return c.UserID
}

// TraceID returns the body-level correlation id.
func (c Common) TraceID() string { return c.Trace }

func (Common) sealed() {}

// TransactionCreated is published when a user records a transaction.
type TransactionCreated struct {
	Common
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Type        string  `json:"type,omitempty"`
	Date        string  `json:"date,omitempty"`
	UserEmail   string  `json:"user_email,omitempty"`
}

// Key implements Event.
func (TransactionCreated) Key() RoutingKey { return KeyTransactionCreated }

// BudgetExceeded is published when spending in a category crosses its budget.
type BudgetExceeded struct {
	Common
	Category      string  `json:"category,omitempty"`
	Percentage    float64 `json:"percentage"`
	CurrentAmount float64 `json:"current_amount"`
	BudgetLimit   float64 `json:"budget_limit"`
	UserEmail     string  `json:"user_email,omitempty"`
}

// Key implements Event.
func (BudgetExceeded) Key() RoutingKey { return KeyBudgetExceeded }

// GoalAchieved is published when a savings goal is reached.
type GoalAchieved struct {
	Common
	GoalName  string `json:"goal_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

// Key implements Event.
func (GoalAchieved) Key() RoutingKey { return KeyGoalAchieved }

// Unknown carries a message whose routing key is not bound by this service.
// The body was still valid JSON.
type Unknown struct {
	Common
	RawKey string
}

// Key implements Event.
func (u Unknown) Key() RoutingKey { return RoutingKey(u.RawKey) }
