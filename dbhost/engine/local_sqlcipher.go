//go:build encryption

package engine

import (
	"encoding/hex"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mutecomm/go-sqlcipher/v4"
)

// HasEncryption reports whether local databases can be opened with an
// encryption key in this build.
func HasEncryption() bool { return true }

// OpenLocal opens (creating if absent) a local database file, or an
// in-memory database for the ":memory:" sentinel. When a key is supplied the
// file is encrypted with SQLCipher (AES-256-CBC); the raw key is passed as a
// hex PRAGMA so it is used verbatim rather than run through key derivation.
func OpenLocal(path string, key []byte) (Database, error) {
	dsn := path
	if key != nil {
		dsn = fmt.Sprintf("%s?_pragma_key=x'%s'", path, hex.EncodeToString(key))
	}
	db, err := sqlx.Connect("sqlite3", dsn)
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
