package db

import (
	"context"
	"database/sql"

	"github.com/willemschots/ecocredit/internal/auth"
	"github.com/willemschots/ecocredit/internal/db"
)

// Store is responsible for interacting with a database.
// Writes go through writeDB, reads outside of transactions through readDB.
type Store struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

// New creates a new Store.
func New(writeDB, readDB *sql.DB) *Store {
	return &Store{
		writeDB: writeDB,
		readDB:  readDB,
	}
}

// BeginTx starts a new transaction.
func (s *Store) BeginTx(ctx context.Context) (auth.Tx, error) {
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{
		tx: tx,
	}, nil
}

// FindUsers queries for users based on the provided filter.
// It returns an empty slice if no users are found.
func (s *Store) FindUsers(ctx context.Context, filter *auth.UserFilter) ([]auth.User, error) {
	return selectUsers(db.Query{}, s.queryFunc(ctx), filter)
}

// FindSessions queries for sessions based on the provided filter.
// It returns an empty slice if no sessions are found.
func (s *Store) FindSessions(ctx context.Context, filter *auth.SessionFilter) ([]auth.Session, error) {
	return selectSessions(db.Query{}, s.queryFunc(ctx), filter)
}

func (s *Store) queryFunc(ctx context.Context) queryFunc {
	return func(query string, params ...any) (*sql.Rows, error) {
		return s.readDB.QueryContext(ctx, query, params...)
	}
}
