package krypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/blake2b"
)

const (
	tokenLen = 32

	// SecretMarker is a string we can look for in logs to see if the app
	// is accidentally exposing secrets.
	SecretMarker = "<!SECRET_REDACTED!>"
)

var ErrInvalidToken = errors.New("invalid token")

// Token is a random session token handed to a client after it authenticated.
//
// The client receives the token in plaintext exactly once. Tokens are
// confidential: they are never logged and only their Digest is persisted.
type Token [tokenLen]byte

// GenerateToken creates a new random token.
func GenerateToken() (Token, error) {
	b, err := genRandomBytes(tokenLen)
	if err != nil {
		return Token{}, err
	}
	return Token(b), nil
}

// ParseToken parses a hex encoded token.
func ParseToken(raw string) (Token, error) {
	if len(raw) != tokenLen*2 {
		return Token{}, ErrInvalidToken
	}

	b, err := hex.DecodeString(raw)
	if err != nil {
		return Token{}, ErrInvalidToken
	}

	return Token(b), nil
}

// String returns the hex encoding of the token, this is the form
// that is handed to clients.
func (t Token) String() string {
	return hex.EncodeToString(t[:])
}

// Digest returns the hex encoded BLAKE2b-256 digest of the token.
// Tokens carry 256 bits of entropy, so a fast unsalted digest suffices
// to look them up without storing them in plaintext.
func (t Token) Digest() string {
	sum := blake2b.Sum256(t[:])
	return hex.EncodeToString(sum[:])
}

// Format prevents the token from being printed by accident.
// Use String to get the actual value.
func (t Token) Format(f fmt.State, verb rune) {
	f.Write([]byte(SecretMarker))
}

// MarshalText prevents the token from being encoded by accident,
// for example by encoding/json.
func (t Token) MarshalText() ([]byte, error) {
	return []byte(SecretMarker), nil
}

// LogValue implements the slog.Valuer interface.
func (t Token) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}
