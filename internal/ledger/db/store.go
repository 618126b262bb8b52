package db

import (
	"context"
	"database/sql"

	"github.com/willemschots/ecocredit/internal/db"
	"github.com/willemschots/ecocredit/internal/ledger"
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
func (s *Store) BeginTx(ctx context.Context) (ledger.Tx, error) {
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{
		tx: tx,
	}, nil
}

// FindBilling queries for billing entries, ordered by id.
// It returns an empty slice if no entries are found.
func (s *Store) FindBilling(ctx context.Context, filter *ledger.BillingFilter) ([]ledger.BillingEntry, error) {
	return selectBilling(db.Query{}, s.queryFunc(ctx), filter)
}

// FindRecycling queries for recycling entries, ordered by id.
// It returns an empty slice if no entries are found.
func (s *Store) FindRecycling(ctx context.Context, filter *ledger.RecyclingFilter) ([]ledger.RecyclingEntry, error) {
	return selectRecycling(db.Query{}, s.queryFunc(ctx), filter)
}

func (s *Store) queryFunc(ctx context.Context) queryFunc {
	return func(query string, params ...any) (*sql.Rows, error) {
		return s.readDB.QueryContext(ctx, query, params...)
	}
}
