package email

import (
	"context"
)

// Sender is the interface that all email providers must implement.
// This abstraction allows swapping email providers (SES, Gmail, etc.)
// without changing business logic.
type Sender interface {
	// Send sends exactly one email to msg.To using the sender identity in cfg.
	Send(ctx context.Context, cfg SendConfig, msg Message) error
	// Validate checks cfg without contacting the provider.
	Validate(cfg SendConfig) error
}

// SenderFactory owns a provider's shared client handle and hands out Senders.
// Implementations are built once at startup and are safe for concurrent use.
type SenderFactory interface {
	// ID is the provider identifier used in configuration, e.g. "aws-ses".
	ID() string
	// Create returns a Sender sharing the factory's client handle.
	Create() Sender
	// OperationalInfo reports the static configuration for diagnostics.
	OperationalInfo() map[string]string
	// Close releases nothing today; it is safe to call any number of times.
	Close() error
}

// Message represents an email message to be sent.
type Message struct {
	To       string // recipient email address
	Subject  string // email subject
	HTMLBody string // HTML email body
	TextBody string // plain-text fallback body
}

// User is anything that exposes an email address, typically a platform account.
// Pointer implementations must return "" from GetEmail on a nil receiver.
type User interface {
	GetEmail() string
}

// SendToUser sends to the user's address. It produces the same request as
// calling s.Send with the address directly. A nil user sends to an empty
// address, so the failure is reported and logged by s like any other.
func SendToUser(ctx context.Context, s Sender, cfg SendConfig, user User, subject, textBody, htmlBody string) error {
	var to string
	if user != nil {
		to = user.GetEmail()
	}

	return s.Send(ctx, cfg, Message{
		To:       to,
		Subject:  subject,
		TextBody: textBody,
		HTMLBody: htmlBody,
	})
}
