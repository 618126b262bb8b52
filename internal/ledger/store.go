package ledger

import (
	"context"
	"time"
)

// BillingFilter is used to filter billing entries.
// If a field is empty, it's ignored.
type BillingFilter struct {
	IDs     []int
	UserIDs []int
}

// RecyclingFilter is used to filter recycling entries.
// If a field is empty, it's ignored.
type RecyclingFilter struct {
	IDs     []int
	UserIDs []int
}

// Store provides access to ledger entries. Find methods return entries
// in insertion order.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)

	FindBilling(ctx context.Context, filter *BillingFilter) ([]BillingEntry, error)
	FindRecycling(ctx context.Context, filter *RecyclingFilter) ([]RecyclingEntry, error)
}

// Tx is a transaction. If an error occurs on any of the methods,
// the transaction is considered to have failed and should be rolled back.
type Tx interface {
	Commit() error
	Rollback() error

	CreateBilling(e *BillingEntry) error
	CreateRecycling(e *RecyclingEntry) error

	// AddUserCredits increments the credit balance of a user in place and
	// sets its modification time. It returns errorz.ErrNotFound for unknown users.
	AddUserCredits(userID int, credits int, updatedAt time.Time) error
}
