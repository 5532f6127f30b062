package email

import "strings"

// Recognized SendConfig keys. Anything else is ignored.
const (
	KeyFrom               = "from"
	KeyFromDisplayName    = "fromDisplayName"
	KeyReplyTo            = "replyTo"
	KeyReplyToDisplayName = "replyToDisplayName"
	KeyAllowUTF8          = "allowutf8"
)

// SendConfig is the per-call sender configuration supplied by the platform.
// A nil SendConfig behaves like an empty one.
type SendConfig map[string]string

// From returns the sender address
func (c SendConfig) From() string { return c[KeyFrom] }

// FromDisplayName returns the optional sender display name
func (c SendConfig) FromDisplayName() string { return c[KeyFromDisplayName] }

// ReplyTo returns the optional reply-to address
func (c SendConfig) ReplyTo() string { return c[KeyReplyTo] }

// ReplyToDisplayName returns the optional reply-to display name
func (c SendConfig) ReplyToDisplayName() string { return c[KeyReplyToDisplayName] }

// AllowUTF8 reports whether SMTPUTF8 addresses are allowed.
// Only "true" (any case) enables it.
func (c SendConfig) AllowUTF8() bool {
	return strings.EqualFold(strings.TrimSpace(c[KeyAllowUTF8]), "true")
}
