package db

import (
	"database/sql"
	"fmt"

	"github.com/willemschots/ecocredit/internal/auth"
	"github.com/willemschots/ecocredit/internal/db"
	"github.com/willemschots/ecocredit/internal/errorz"
)

type execFunc func(query string, params ...any) (sql.Result, error)
type queryFunc func(query string, params ...any) (*sql.Rows, error)

func insertUser(q db.Query, ef execFunc, u *auth.User) error {
	if u.ID != 0 {
		return fmt.Errorf("user already has id %d: %w", u.ID, errorz.ErrConstraintViolated)
	}

	q.Unsafe(`INSERT INTO users (username, email, password_hash, full_name, carbon_credits, created_at, updated_at) VALUES (`)
	q.Params(u.Username, u.Email, u.PasswordHash, nullString(u.FullName), u.Credits, u.CreatedAt, u.UpdatedAt)
	q.Unsafe(`)`)

	s, params := q.Get()
	res, err := ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	u.ID = int(id)

	return nil
}

func selectUsers(q db.Query, qf queryFunc, f *auth.UserFilter) ([]auth.User, error) {
	q.Unsafe(`SELECT id, username, email, password_hash, full_name, carbon_credits, created_at, updated_at FROM users WHERE 1=1 `)

	if f != nil && len(f.IDs) > 0 {
		q.Unsafe(`AND `)
		db.In(&q, "id", f.IDs)
		q.Unsafe(` `)
	}

	if f != nil && len(f.Usernames) > 0 {
		q.Unsafe(`AND `)
		db.In(&q, "username", f.Usernames)
		q.Unsafe(` `)
	}

	if f != nil && len(f.Emails) > 0 {
		q.Unsafe(`AND `)
		db.In(&q, "email", f.Emails)
		q.Unsafe(` `)
	}

	q.Unsafe(`ORDER BY id ASC`)

	s, params := q.Get()
	rows, err := qf(s, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]auth.User, 0)
	for rows.Next() {
		var (
			u        auth.User
			fullName sql.NullString
		)
		err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &fullName, &u.Credits, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		u.FullName = fullName.String
		out = append(out, u)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func insertSession(q db.Query, ef execFunc, sess *auth.Session) error {
	if sess.ID != 0 {
		return fmt.Errorf("session already has id %d: %w", sess.ID, errorz.ErrConstraintViolated)
	}

	q.Unsafe(`INSERT INTO sessions (token_digest, user_id, created_at, expires_at) VALUES (`)
	q.Params(sess.TokenDigest, sess.UserID, sess.CreatedAt, sess.ExpiresAt)
	q.Unsafe(`)`)

	s, params := q.Get()
	res, err := ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	sess.ID = int(id)

	return nil
}

func selectSessions(q db.Query, qf queryFunc, f *auth.SessionFilter) ([]auth.Session, error) {
	q.Unsafe(`SELECT id, token_digest, user_id, created_at, expires_at FROM sessions WHERE 1=1 `)
	sessionConditions(&q, f)
	q.Unsafe(`ORDER BY id ASC`)

	s, params := q.Get()
	rows, err := qf(s, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]auth.Session, 0)
	for rows.Next() {
		var sess auth.Session
		err := rows.Scan(&sess.ID, &sess.TokenDigest, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		out = append(out, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func deleteSessions(q db.Query, ef execFunc, f *auth.SessionFilter) error {
	if f.IsEmpty() {
		return fmt.Errorf("refusing to delete all sessions: %w", errorz.ErrConstraintViolated)
	}

	q.Unsafe(`DELETE FROM sessions WHERE 1=1 `)
	sessionConditions(&q, f)

	s, params := q.Get()
	_, err := ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return nil
}

func sessionConditions(q *db.Query, f *auth.SessionFilter) {
	if f == nil {
		return
	}

	if len(f.IDs) > 0 {
		q.Unsafe(`AND `)
		db.In(q, "id", f.IDs)
		q.Unsafe(` `)
	}

	if len(f.UserIDs) > 0 {
		q.Unsafe(`AND `)
		db.In(q, "user_id", f.UserIDs)
		q.Unsafe(` `)
	}

	if len(f.TokenDigests) > 0 {
		q.Unsafe(`AND `)
		db.In(q, "token_digest", f.TokenDigests)
		q.Unsafe(` `)
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
