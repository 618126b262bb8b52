package db

import (
	"database/sql"
	"time"

	"github.com/willemschots/ecocredit/internal/db"
	"github.com/willemschots/ecocredit/internal/ledger"
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

// CreateBilling creates a billing entry and sets its ID.
// It returns errorz.ErrForeignKeyViolated if the user does not exist.
func (t *Tx) CreateBilling(e *ledger.BillingEntry) error {
	return insertBilling(db.Query{}, t.tx.Exec, e)
}

// CreateRecycling creates a recycling entry and sets its ID.
// It returns errorz.ErrForeignKeyViolated if the user does not exist.
func (t *Tx) CreateRecycling(e *ledger.RecyclingEntry) error {
	return insertRecycling(db.Query{}, t.tx.Exec, e)
}

// AddUserCredits increments the balance of the user inside the update
// statement, the current balance is never read by the caller.
func (t *Tx) AddUserCredits(userID int, credits int, updatedAt time.Time) error {
	return addUserCredits(db.Query{}, t.tx.Exec, userID, credits, updatedAt)
}
