package ses

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// classifyError adds the SES error code to the message while keeping the
// original error in the chain.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("ses: send email interrupted: %w", err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "MessageRejected":
			return fmt.Errorf("ses: message rejected: %w", err)
		case "MailFromDomainNotVerifiedException":
			return fmt.Errorf("ses: sender domain not verified: %w", err)
		case "AccountSuspendedException", "SendingPausedException":
			return fmt.Errorf("ses: sending disabled for account: %w", err)
		case "TooManyRequestsException", "LimitExceededException", "Throttling":
			return fmt.Errorf("ses: sending rate exceeded: %w", err)
		default:
			return fmt.Errorf("ses: send email failed (code: %s): %w", apiErr.ErrorCode(), err)
		}
	}

	return fmt.Errorf("ses: send email failed: %w", err)
}

// errorCode returns the SES error code, or "" for non-API errors.
func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
