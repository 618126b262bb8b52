// Package migrate applies the embedded SQL migrations to a SQLite database
// and records every applied file in a migrations table.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"
)

// Migration records a single applied migration file.
type Migration struct {
	// Sequence is the position of the file, the first file has sequence 0.
	Sequence int
	Filename string
	Metadata Metadata
}

// Equal reports whether m and other describe the same applied file.
func (m Migration) Equal(other Migration) bool {
	return m.Sequence == other.Sequence &&
		m.Filename == other.Filename &&
		m.Metadata.AppVersion == other.Metadata.AppVersion &&
		m.Metadata.Timestamp.Equal(other.Metadata.Timestamp)
}

// Metadata is stored next to every applied migration, it tells which
// build applied it and when.
type Metadata struct {
	AppVersion string
	Timestamp  time.Time
}

const (
	createTableQuery = `CREATE TABLE IF NOT EXISTS migrations (
	sequence    INTEGER PRIMARY KEY,
	filename    TEXT NOT NULL,
	app_version TEXT NOT NULL,
	timestamp   TIMESTAMP NOT NULL
)
`
	selectQuery = `SELECT sequence, filename, app_version, timestamp FROM migrations ORDER BY sequence`
	insertQuery = `INSERT INTO migrations (sequence, filename, app_version, timestamp) VALUES (?, ?, ?, ?)`
)

var (
	// ErrNoTable is returned when the migrations table was never created.
	ErrNoTable = errors.New("migrations table does not exist")
	// ErrMigrationsMismatch is returned when the applied migrations don't
	// match the start of the available files.
	ErrMigrationsMismatch = errors.New("migrations mismatch")
)

// MigrationError wraps the error of a migration file that failed to apply.
type MigrationError struct {
	Sequence int
	Filename string
	Err      error
}

func (m MigrationError) Error() string {
	return fmt.Sprintf("migration [%d] %q failed: %v", m.Sequence, m.Filename, m.Err)
}

func (m MigrationError) Unwrap() error {
	return m.Err
}

// RunFS applies the .sql files in the root of fileSys that did not run
// before, in lexical order and in a single transaction. It returns the
// migrations it applied, an empty slice if there was nothing to do.
func RunFS(ctx context.Context, db *sql.DB, fileSys fs.FS, meta Metadata) ([]Migration, error) {
	files, err := loadFiles(fileSys)
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	applied, err := apply(ctx, tx, files, meta)
	if err != nil {
		rErr := tx.Rollback()
		if rErr != nil {
			err = errors.Join(err, rErr)
		}
		return nil, err
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return applied, nil
}

func apply(ctx context.Context, tx *sql.Tx, files []file, meta Metadata) ([]Migration, error) {
	_, err := tx.ExecContext(ctx, createTableQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	ran, err := queryWith(func(q string) (*sql.Rows, error) {
		return tx.QueryContext(ctx, q)
	})
	if err != nil {
		return nil, err
	}

	pending, err := plan(ran, files)
	if err != nil {
		return nil, err
	}

	applied := make([]Migration, 0, len(pending))
	for i, f := range pending {
		m := Migration{
			Sequence: len(ran) + i,
			Filename: f.name,
			Metadata: meta,
		}

		_, err := tx.ExecContext(ctx, f.content)
		if err != nil {
			return nil, MigrationError{Sequence: m.Sequence, Filename: m.Filename, Err: err}
		}

		_, err = tx.ExecContext(ctx, insertQuery, m.Sequence, m.Filename, m.Metadata.AppVersion, m.Metadata.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to record migration %q: %w", m.Filename, err)
		}

		applied = append(applied, m)
	}

	return applied, nil
}

// Pending returns the names of the migration files in fileSys that did not
// run against db yet. Without a migrations table every file is pending.
func Pending(ctx context.Context, db *sql.DB, fileSys fs.FS) ([]string, error) {
	files, err := loadFiles(fileSys)
	if err != nil {
		return nil, err
	}

	ran, err := QueryMigrations(ctx, db)
	if err != nil && !errors.Is(err, ErrNoTable) {
		return nil, err
	}

	pending, err := plan(ran, files)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(pending))
	for _, f := range pending {
		names = append(names, f.name)
	}

	return names, nil
}

// plan checks that ran is a prefix of files and returns the remaining files.
func plan(ran []Migration, files []file) ([]file, error) {
	if len(ran) > len(files) {
		return nil, fmt.Errorf(
			"found %d existing migrations but only have %d files: %w",
			len(ran), len(files), ErrMigrationsMismatch,
		)
	}

	for i, m := range ran {
		if m.Sequence != i {
			return nil, fmt.Errorf("migration sequence mismatch, wanted %d got %d", i, m.Sequence)
		}

		if m.Filename != files[i].name {
			return nil, fmt.Errorf(
				"migration %d had filename %s, but now encountering %s: %w",
				i, m.Filename, files[i].name, ErrMigrationsMismatch,
			)
		}
	}

	return files[len(ran):], nil
}

// QueryMigrations returns the applied migrations ordered by sequence.
// It returns ErrNoTable if no migration ever ran.
func QueryMigrations(ctx context.Context, db *sql.DB) ([]Migration, error) {
	return queryWith(func(q string) (*sql.Rows, error) {
		return db.QueryContext(ctx, q)
	})
}

func queryWith(rowsFunc func(q string) (*sql.Rows, error)) ([]Migration, error) {
	rows, err := rowsFunc(selectQuery)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return nil, ErrNoTable
		}
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	out := make([]Migration, 0)
	for rows.Next() {
		var m Migration
		err := rows.Scan(&m.Sequence, &m.Filename, &m.Metadata.AppVersion, &m.Metadata.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		out = append(out, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate over migrations: %w", err)
	}

	return out, nil
}

type file struct {
	name    string
	content string
}

// loadFiles reads the .sql files in the root of fileSys. fs.ReadDir
// returns them sorted by name.
func loadFiles(fileSys fs.FS) ([]file, error) {
	entries, err := fs.ReadDir(fileSys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	files := make([]file, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}

		content, err := fs.ReadFile(fileSys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %q: %w", entry.Name(), err)
		}

		files = append(files, file{name: entry.Name(), content: string(content)})
	}

	return files, nil
}
