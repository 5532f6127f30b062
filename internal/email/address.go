package email

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

const smtpUTF8Hint = "UTF-8 characters in the local part of an address require SMTPUTF8 support; " +
	`enable the "Allow UTF-8" option if your mail provider supports it`

// ResolveAddress returns address in RFC 5322 form, qualified with
// displayName when it is not blank. A blank address is always an error,
// a blank display name just means "no display name".
func ResolveAddress(address, displayName string) (string, error) {
	if strings.TrimSpace(address) == "" {
		return "", fmt.Errorf("%w: please provide a valid address", ErrInvalidAddress)
	}

	parsed, err := mail.ParseAddress(address)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidAddress, address, err)
	}

	if strings.TrimSpace(displayName) == "" {
		if parsed.Name != "" {
			return parsed.String(), nil
		}
		return bareAddress(parsed.Address), nil
	}

	return (&mail.Address{Name: displayName, Address: parsed.Address}).String(), nil
}

// bareAddress formats an addr-spec without angle brackets, quoting the
// local part when needed.
func bareAddress(address string) string {
	s := (&mail.Address{Address: address}).String()
	return strings.TrimSuffix(strings.TrimPrefix(s, "<"), ">")
}

// ValidateSendConfig statically checks the sender address in cfg.
// It never contacts a provider.
func ValidateSendConfig(cfg SendConfig) error {
	from := cfg.From()
	if strings.TrimSpace(from) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrMissingFrom)
	}

	if err := ValidateAddress(from, cfg.AllowUTF8()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// ValidateAddress checks a bare address. Without allowUTF8 the domain is
// converted to its ASCII (punycode) form and the whole address must then be
// pure ASCII.
func ValidateAddress(address string, allowUTF8 bool) error {
	if allowUTF8 {
		if !isValidSyntax(address) {
			return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
		}
		return nil
	}

	at := strings.LastIndex(address, "@")
	if at <= 0 || at == len(address)-1 {
		return fmt.Errorf("%w: %q: %s", ErrInvalidAddress, address, smtpUTF8Hint)
	}

	domain, err := idna.Lookup.ToASCII(address[at+1:])
	if err != nil {
		return fmt.Errorf("%w: %q: %s", ErrInvalidAddress, address, smtpUTF8Hint)
	}

	converted := address[:at] + "@" + domain
	if !isASCII(converted) || !isValidSyntax(converted) {
		return fmt.Errorf("%w: %q: %s", ErrInvalidAddress, address, smtpUTF8Hint)
	}

	return nil
}

// isValidSyntax accepts a bare addr-spec only, no display name or brackets.
func isValidSyntax(address string) bool {
	parsed, err := mail.ParseAddress(address)
	if err != nil {
		return false
	}
	if parsed.Name != "" {
		return false
	}
	// Quoted local parts come back unquoted
	return parsed.Address == address || bareAddress(parsed.Address) == address
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
