//go:build remote

package engine

import (
	"net/url"

	"github.com/jmoiron/sqlx"
	_ "github.com/tursodatabase/go-libsql"
)

// HasRemote reports whether pure-remote connections are available in this
// build.
func HasRemote() bool { return true }

// OpenRemote connects to a remote libsql endpoint with no local file. Every
// operation on the returned database requires network reachability.
func OpenRemote(target, authToken string) (Database, error) {
	dsn := target
	if authToken != "" {
		u, err := url.Parse(target)
		if err != nil {
			return nil, err
		}
		q := u.Query()
		q.Set("authToken", authToken)
		u.RawQuery = q.Encode()
		dsn = u.String()
	}

	db, err := sqlx.Connect("libsql", dsn)
	if err != nil {
		return nil, err
	}
	return &remoteDB{db: db}, nil
}

type remoteDB struct {
	db *sqlx.DB
}

func (r *remoteDB) Handle() *sqlx.DB { return r.db }

// Sync is a no-op: there is no local replica to pull remote state into.
func (r *remoteDB) Sync() error { return nil }

func (r *remoteDB) Close() error { return r.db.Close() }
