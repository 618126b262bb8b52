package email

import (
	"errors"
	"net/mail"
	"strings"
)

// maxAddressLen is the maximum length of a forward path in SMTP (RFC 5321).
const maxAddressLen = 254

// ErrInvalidEmail indicates an email address is not valid.
var ErrInvalidEmail = errors.New("invalid email address")

// Address is a syntactically valid email address. Addresses are compared
// exactly, "Alice@example.com" and "alice@example.com" are different addresses.
type Address string

// ParseAddress trims the given string and checks if it's shaped like an email address.
// This doesn't guarantee the email address actually exists.
func ParseAddress(raw string) (Address, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) > maxAddressLen {
		return Address(""), ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return Address(""), ErrInvalidEmail
	}

	// mail.ParseAddress also accepts display names and comments:
	// "Alice <alice@example.com>(comment)". Only the bare address is allowed.
	if addr.Address != trimmed {
		return Address(""), ErrInvalidEmail
	}

	return Address(addr.Address), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	addr, err := ParseAddress(string(text))
	if err != nil {
		return err
	}

	*a = addr

	return nil
}
