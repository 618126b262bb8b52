package auth

import (
	"context"

	"github.com/willemschots/ecocredit/internal/email"
)

// UserFilter is used filter users.
// Returned users must match all the provided fields.
// If a field is empty or nil, it's ignored.
type UserFilter struct {
	IDs       []int
	Usernames []Username
	Emails    []email.Address
}

// SessionFilter is used to filter sessions.
// Returned sessions must match all the provided fields.
// If a field is empty, it's ignored.
type SessionFilter struct {
	IDs          []int
	UserIDs      []int
	TokenDigests []string
}

// IsEmpty reports whether the filter matches every session.
func (f *SessionFilter) IsEmpty() bool {
	return f == nil || (len(f.IDs) == 0 && len(f.UserIDs) == 0 && len(f.TokenDigests) == 0)
}

// Store provides access to users and sessions.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)

	// FindUsers and FindSessions read outside of a transaction.
	FindUsers(ctx context.Context, filter *UserFilter) ([]User, error)
	FindSessions(ctx context.Context, filter *SessionFilter) ([]Session, error)
}

// Tx is a transaction. If an error occurs on any of the Create/Delete/Find methods,
// the transaction is considered to have failed and should be rolled back.
// Tx is not safe for concurrent use.
type Tx interface {
	Commit() error
	Rollback() error

	CreateUser(u *User) error
	FindUsers(filter *UserFilter) ([]User, error)

	CreateSession(s *Session) error
	FindSessions(filter *SessionFilter) ([]Session, error)
	// DeleteSessions deletes all matching sessions, it is not an error if none match.
	// An empty filter is refused.
	DeleteSessions(filter *SessionFilter) error
}
