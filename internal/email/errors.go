package email

import "errors"

// Email errors. Provider failures are joined with ErrSendFailed so callers
// can match on the kind while keeping the provider's error for diagnostics.
var (
	ErrSendFailed     = errors.New("failed to send email")
	ErrInvalidConfig  = errors.New("invalid email configuration")
	ErrInvalidAddress = errors.New("invalid email address")
	ErrMissingFrom    = errors.New("missing 'from' email address")
)
