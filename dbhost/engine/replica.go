//go:build replication

package engine

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	libsql "github.com/tursodatabase/go-libsql"
)

// HasReplication reports whether embedded replicas are available in this
// build.
func HasReplication() bool { return true }

// OpenReplica opens a local database file kept synchronized with a remote
// libsql endpoint. One blocking pull is performed before returning, so the
// first read reflects the remote state at connect time.
//
// The libsql builder parses syncURL internally and can panic on malformed
// input rather than returning an error; callers are expected to invoke
// OpenReplica inside a recover boundary.
func OpenReplica(path, syncURL, authToken string, key []byte) (Database, error) {
	opts := []libsql.Option{libsql.WithAuthToken(authToken)}
	if key != nil {
		opts = append(opts, libsql.WithEncryption(string(key)))
	}

	connector, err := libsql.NewEmbeddedReplicaConnector(path, syncURL, opts...)
	if err != nil {
		return nil, err
	}

	if _, err := connector.Sync(); err != nil {
		connector.Close()
		return nil, err
	}

	db := sqlx.NewDb(sql.OpenDB(connector), "libsql")
	return &replicaDB{db: db, connector: connector}, nil
}

type replicaDB struct {
	db        *sqlx.DB
	connector *libsql.Connector
}

func (r *replicaDB) Handle() *sqlx.DB { return r.db }

// Sync pulls the latest remote frames into the local replica file.
func (r *replicaDB) Sync() error {
	_, err := r.connector.Sync()
	return err
}

func (r *replicaDB) Close() error {
	if err := r.db.Close(); err != nil {
		r.connector.Close()
		return err
	}
	return r.connector.Close()
}
