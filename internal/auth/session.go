package auth

import (
	"time"
)

// Session binds a bearer token to a user for a limited time.
// Only the digest of the token is kept, see krypto.Token.Digest.
type Session struct {
	ID          int
	TokenDigest string
	UserID      int
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// IsExpired reports whether the session can no longer be used at now.
// A session expires at the exact instant of ExpiresAt.
func (s Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
