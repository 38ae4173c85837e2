// Package engine wraps the embedded SQL engines behind a single Database
// interface. Which engines are compiled in is decided by build tags:
//
//   - default: local SQLite files via mattn/go-sqlite3, no encryption
//   - encryption: local files via the SQLCipher build of the same driver
//   - replication: libsql embedded replicas synchronized with a remote
//   - remote: pure-remote libsql connections
//
// A capability that was not compiled in is reported by the Has* functions and
// its Open* constructor returns the matching sentinel error.
package engine

import (
	"errors"

	"github.com/jmoiron/sqlx"
)

// Database is a live engine handle. Handle exposes the SQL interface the
// query executor drives; Sync pulls remote state for replica databases and is
// a successful no-op for databases that have no remote.
type Database interface {
	Handle() *sqlx.DB
	Sync() error
	Close() error
}

var (
	// ErrEncryptionNotSupported is returned when an encryption key is
	// supplied but the binary was built without the encryption tag.
	ErrEncryptionNotSupported = errors.New("encryption support not compiled in (build with -tags encryption)")
	// ErrReplicationNotSupported is returned when a sync URL is supplied but
	// the binary was built without the replication tag.
	ErrReplicationNotSupported = errors.New("embedded replica support not compiled in (build with -tags replication)")
	// ErrRemoteNotSupported is returned for remote targets when the binary
	// was built without the remote tag.
	ErrRemoteNotSupported = errors.New("remote connections not compiled in (build with -tags remote)")
)
