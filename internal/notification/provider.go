// Package notification delivers user alerts (currently email via SMTP) for
// the events handled by the dispatcher.
package notification

import "context"

// Message is the content to be delivered by a Provider.
type Message struct {
	Subject string
	Text    string
	HTML    string
	To      []string
}

// Provider is the interface for notification delivery backends.
type Provider interface {
	// Name returns the provider identifier (e.g. "smtp").
	Name() string
	// Send delivers the message and returns the transport message id.
	Send(ctx context.Context, msg Message) (string, error)
}
