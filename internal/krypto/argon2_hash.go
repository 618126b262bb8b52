package krypto

import (
	"crypto/rand"
	"crypto/subtle"
	"database/sql/driver"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Variant = "argon2id"

	// Parameters follow the OWASP recommendation for argon2id:
	// 46 MiB of memory, a single iteration and a single thread.
	argon2MemoryKiB   = 47104
	argon2Iterations  = 1
	argon2Parallelism = 1
	argon2SaltLen     = 16
	argon2KeyLen      = 32
)

var ErrInvalidInput = errors.New("invalid input")

// Argon2Hash is an argon2id hash together with the parameters used to create it.
// Its text form is the PHC string format:
//
//	$argon2id$v=19$m=47104,t=1,p=1$<salt>$<hash>
type Argon2Hash struct {
	Variant     string
	Version     int
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	Salt        []byte
	Hash        []byte
}

// HashArgon2 hashes data with a random salt.
func HashArgon2(data []byte) (Argon2Hash, error) {
	if len(data) == 0 {
		return Argon2Hash{}, fmt.Errorf("nothing to hash: %w", ErrInvalidInput)
	}

	salt, err := genRandomBytes(argon2SaltLen)
	if err != nil {
		return Argon2Hash{}, err
	}

	return Argon2Hash{
		Variant:     argon2Variant,
		Version:     argon2.Version,
		MemoryKiB:   argon2MemoryKiB,
		Iterations:  argon2Iterations,
		Parallelism: argon2Parallelism,
		Salt:        salt,
		Hash:        argon2.IDKey(data, salt, argon2Iterations, argon2MemoryKiB, argon2Parallelism, argon2KeyLen),
	}, nil
}

// ParseArgon2Hash parses a hash in the PHC string format.
func ParseArgon2Hash(s string) (Argon2Hash, error) {
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[0] != "" {
		return Argon2Hash{}, fmt.Errorf("expected 6 $-separated parts: %w", ErrInvalidInput)
	}

	h := Argon2Hash{
		Variant: parts[1],
	}

	if h.Variant != argon2Variant {
		return Argon2Hash{}, fmt.Errorf("unsupported variant %q: %w", h.Variant, ErrInvalidInput)
	}

	_, err := fmt.Sscanf(parts[2], "v=%d", &h.Version)
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("invalid version: %w", errors.Join(ErrInvalidInput, err))
	}

	if h.Version != argon2.Version {
		return Argon2Hash{}, fmt.Errorf("unsupported version %d: %w", h.Version, ErrInvalidInput)
	}

	_, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.MemoryKiB, &h.Iterations, &h.Parallelism)
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("invalid parameters: %w", errors.Join(ErrInvalidInput, err))
	}

	h.Salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("invalid salt: %w", errors.Join(ErrInvalidInput, err))
	}

	h.Hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("invalid hash: %w", errors.Join(ErrInvalidInput, err))
	}

	if len(h.Hash) == 0 {
		return Argon2Hash{}, fmt.Errorf("empty hash: %w", ErrInvalidInput)
	}

	return h, nil
}

// MatchBytes reports whether data hashes to h, using the parameters stored in h.
func (h Argon2Hash) MatchBytes(data []byte) bool {
	if len(h.Hash) == 0 {
		return false
	}

	other := argon2.IDKey(data, h.Salt, h.Iterations, h.MemoryKiB, h.Parallelism, uint32(len(h.Hash)))
	return subtle.ConstantTimeCompare(h.Hash, other) == 1
}

func (h Argon2Hash) String() string {
	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		h.Variant,
		h.Version,
		h.MemoryKiB,
		h.Iterations,
		h.Parallelism,
		base64.RawStdEncoding.EncodeToString(h.Salt),
		base64.RawStdEncoding.EncodeToString(h.Hash),
	)
}

func (h Argon2Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Argon2Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseArgon2Hash(string(text))
	if err != nil {
		return err
	}

	*h = parsed
	return nil
}

// Scan implements sql.Scanner.
func (h *Argon2Hash) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return h.UnmarshalText([]byte(v))
	case []byte:
		return h.UnmarshalText(v)
	default:
		return fmt.Errorf("can not scan %T into argon2 hash", src)
	}
}

// Value implements driver.Valuer.
func (h Argon2Hash) Value() (driver.Value, error) {
	return h.String(), nil
}

func genRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return nil, err
	}

	return b, nil
}
