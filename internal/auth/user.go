package auth

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/willemschots/ecocredit/internal/email"
	"github.com/willemschots/ecocredit/internal/krypto"
)

const maxFullNameLen = 100

var (
	ErrInvalidUsername = errors.New("username must be 3-20 characters and contain only letters, numbers, underscores and hyphens")
	ErrInvalidFullName = errors.New("full name is too long")
)

var usernameRegexp = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)

// User contains the data for a user.
type User struct {
	ID           int
	Username     Username
	Email        email.Address
	PasswordHash krypto.Argon2Hash
	// FullName is optional, empty means not provided.
	FullName string
	// Credits is the balance of carbon credits. It only ever grows,
	// the ledger increments it when billing entries are posted.
	Credits   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Username is a unique, case sensitive handle for a user.
type Username string

// ParseUsername checks that raw is 3 to 20 characters of letters,
// digits, underscores or hyphens.
func ParseUsername(raw string) (Username, error) {
	if !usernameRegexp.MatchString(raw) {
		return "", ErrInvalidUsername
	}
	return Username(raw), nil
}

func parseFullName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if utf8.RuneCountInString(name) > maxFullNameLen {
		return "", ErrInvalidFullName
	}
	return name, nil
}
