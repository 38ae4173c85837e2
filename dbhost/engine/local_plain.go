//go:build !encryption

package engine

import (
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// HasEncryption reports whether local databases can be opened with an
// encryption key in this build.
func HasEncryption() bool { return false }

// OpenLocal opens (creating if absent) a local database file, or an
// in-memory database for the ":memory:" sentinel. This build has no
// encryption support, so a non-nil key is rejected.
func OpenLocal(path string, key []byte) (Database, error) {
	if key != nil {
		return nil, ErrEncryptionNotSupported
	}
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// Every additional pooled connection to ":memory:" is a distinct empty
	// database, so the sentinel is pinned to a single connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	return &localDB{db: db}, nil
}

type localDB struct {
	db *sqlx.DB
}

func (l *localDB) Handle() *sqlx.DB { return l.db }

// Sync is a no-op: a local database has no remote to pull from.
func (l *localDB) Sync() error { return nil }

func (l *localDB) Close() error { return l.db.Close() }
