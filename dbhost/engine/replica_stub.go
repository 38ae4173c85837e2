//go:build !replication

package engine

// HasReplication reports whether embedded replicas are available in this
// build.
func HasReplication() bool { return false }

// OpenReplica always fails in builds without the replication tag.
func OpenReplica(path, syncURL, authToken string, key []byte) (Database, error) {
	return nil, ErrReplicationNotSupported
}
