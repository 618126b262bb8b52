package db

import (
	"database/sql"

	"github.com/willemschots/ecocredit/internal/auth"
	"github.com/willemschots/ecocredit/internal/db"
)

type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// CreateUser creates a user in the database.
// It sets the ID of the user when successful.
// It returns errorz.ErrUniqueViolated if the username or email is taken.
func (t *Tx) CreateUser(u *auth.User) error {
	return insertUser(db.Query{}, t.tx.Exec, u)
}

// FindUsers queries for users based on the provided filter.
// It returns an empty slice if no users are found.
func (t *Tx) FindUsers(filter *auth.UserFilter) ([]auth.User, error) {
	return selectUsers(db.Query{}, t.tx.Query, filter)
}

// CreateSession creates a session in the database.
// It sets the ID of the session when successful.
func (t *Tx) CreateSession(s *auth.Session) error {
	return insertSession(db.Query{}, t.tx.Exec, s)
}

// FindSessions queries for sessions based on the provided filter.
func (t *Tx) FindSessions(filter *auth.SessionFilter) ([]auth.Session, error) {
	return selectSessions(db.Query{}, t.tx.Query, filter)
}

// DeleteSessions deletes the sessions matching the filter.
func (t *Tx) DeleteSessions(filter *auth.SessionFilter) error {
	return deleteSessions(db.Query{}, t.tx.Exec, filter)
}
