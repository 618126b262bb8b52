package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/willemschots/ecocredit/internal/db"
	"github.com/willemschots/ecocredit/internal/errorz"
	"github.com/willemschots/ecocredit/internal/ledger"
)

type execFunc func(query string, params ...any) (sql.Result, error)
type queryFunc func(query string, params ...any) (*sql.Rows, error)

func insertBilling(q db.Query, ef execFunc, e *ledger.BillingEntry) error {
	if e.ID != 0 {
		return fmt.Errorf("billing entry already has id %d: %w", e.ID, errorz.ErrConstraintViolated)
	}

	q.Unsafe(`INSERT INTO billing_entries (user_id, energy_type, units_consumed, carbon_emissions, credits_earned, date, created_at) VALUES (`)
	q.Params(e.UserID, string(e.EnergyType), e.UnitsConsumed, e.CarbonEmissions, e.CreditsEarned, e.Date.Format(ledger.DateLayout), e.CreatedAt)
	q.Unsafe(`)`)

	s, params := q.Get()
	id, err := insert(ef, s, params)
	if err != nil {
		return err
	}

	e.ID = id

	return nil
}

func selectBilling(q db.Query, qf queryFunc, f *ledger.BillingFilter) ([]ledger.BillingEntry, error) {
	q.Unsafe(`SELECT id, user_id, energy_type, units_consumed, carbon_emissions, credits_earned, date, created_at FROM billing_entries WHERE 1=1 `)

	if f != nil {
		entryConditions(&q, f.IDs, f.UserIDs)
	}

	q.Unsafe(`ORDER BY id ASC`)

	s, params := q.Get()
	rows, err := qf(s, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]ledger.BillingEntry, 0)
	for rows.Next() {
		var (
			e    ledger.BillingEntry
			date string
		)
		err := rows.Scan(&e.ID, &e.UserID, &e.EnergyType, &e.UnitsConsumed, &e.CarbonEmissions, &e.CreditsEarned, &date, &e.CreatedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		e.Date, err = time.Parse(ledger.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("billing entry %d has invalid date %q: %w", e.ID, date, err)
		}

		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func insertRecycling(q db.Query, ef execFunc, e *ledger.RecyclingEntry) error {
	if e.ID != 0 {
		return fmt.Errorf("recycling entry already has id %d: %w", e.ID, errorz.ErrConstraintViolated)
	}

	q.Unsafe(`INSERT INTO recycling_entries (user_id, waste_type, quantity, credits, created_at) VALUES (`)
	q.Params(e.UserID, string(e.WasteType), e.Quantity, e.Credits, e.CreatedAt)
	q.Unsafe(`)`)

	s, params := q.Get()
	id, err := insert(ef, s, params)
	if err != nil {
		return err
	}

	e.ID = id

	return nil
}

func selectRecycling(q db.Query, qf queryFunc, f *ledger.RecyclingFilter) ([]ledger.RecyclingEntry, error) {
	q.Unsafe(`SELECT id, user_id, waste_type, quantity, credits, created_at FROM recycling_entries WHERE 1=1 `)

	if f != nil {
		entryConditions(&q, f.IDs, f.UserIDs)
	}

	q.Unsafe(`ORDER BY id ASC`)

	s, params := q.Get()
	rows, err := qf(s, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]ledger.RecyclingEntry, 0)
	for rows.Next() {
		var e ledger.RecyclingEntry
		err := rows.Scan(&e.ID, &e.UserID, &e.WasteType, &e.Quantity, &e.Credits, &e.CreatedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func addUserCredits(q db.Query, ef execFunc, userID int, credits int, updatedAt time.Time) error {
	q.Unsafe(`UPDATE users SET carbon_credits = carbon_credits + `)
	q.Param(credits)
	q.Unsafe(`, updated_at = `)
	q.Param(updatedAt)
	q.Unsafe(` WHERE id = `)
	q.Param(userID)

	s, params := q.Get()
	res, err := ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	if n == 0 {
		return fmt.Errorf("user %d: %w", userID, errorz.ErrNotFound)
	}

	return nil
}

func insert(ef execFunc, s string, params []any) (int, error) {
	res, err := ef(s, params...)
	if err != nil {
		return 0, errorz.MapDBErr(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, errorz.MapDBErr(err)
	}

	return int(id), nil
}

func entryConditions(q *db.Query, ids, userIDs []int) {
	if len(ids) > 0 {
		q.Unsafe(`AND `)
		db.In(q, "id", ids)
		q.Unsafe(` `)
	}

	if len(userIDs) > 0 {
		q.Unsafe(`AND `)
		db.In(q, "user_id", userIDs)
		q.Unsafe(` `)
	}
}
