package db

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

const (
	// Both pools use:
	// - WAL mode so that readers and the writer don't block each other.
	// - A busy timeout, the duration a connection waits for a lock.
	// - Enforced foreign keys, deleting a user cascades to its sessions and entries.
	//
	// The write pool also begins transactions with BEGIN IMMEDIATE. Combined with a
	// single connection this serializes all writes, so read-modify-write sequences
	// inside a transaction can't lose updates.
	writeOptions = "?_foreign_keys=on&_journal_mode=wal&_busy_timeout=5000&_txlock=immediate"
	readOptions  = "?_foreign_keys=on&_journal_mode=wal&_busy_timeout=5000"
)

// OpenSQLite opens a pool of SQLite3 connections. Different settings
// are appropriate for reading and writing, so this function needs to know
// what the sql.DB will be used for.
//
// See this comment for more information:
// https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995
func OpenSQLite(dbFile string, write bool) (*sql.DB, error) {
	optsPostfix := readOptions
	if write {
		optsPostfix = writeOptions
	}

	db, err := sql.Open("sqlite3", dbFile+optsPostfix)
	if err != nil {
		return nil, err
	}

	if write {
		// use only a single connection for writing.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		// don't close this connection.
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	return db, nil
}
