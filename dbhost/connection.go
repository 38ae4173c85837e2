package dbhost

import (
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/sqlbridge/sqlbridge/dbhost/engine"
)

// Mode is the connection mode selected at build time from the connect
// options.
type Mode int

const (
	// ModeLocal is a connection backed solely by a local file.
	ModeLocal Mode = iota
	// ModeReplica is a local file kept synchronized with a remote endpoint.
	ModeReplica
	// ModeRemote is a connection with no local file at all.
	ModeRemote
)

func (m Mode) String() string {
	switch m {
	case ModeReplica:
		return "replica"
	case ModeRemote:
		return "remote"
	default:
		return "local"
	}
}

// ConnectOptions are the caller-supplied parameters for opening a database.
type ConnectOptions struct {
	// Target names the database: a local file (optionally prefixed with
	// "sqlite:"), the ":memory:" sentinel, or a remote URL.
	Target string
	// Encryption overrides the process-wide default for this connection.
	Encryption *EncryptionConfig
	// SyncURL, when set, selects replica mode: Target is opened as a local
	// file synchronized with this endpoint.
	SyncURL string
	// AuthToken authenticates against SyncURL or a remote Target.
	AuthToken string
}

// Connection is a live database handle. It is shared between the pool and
// every in-flight request; the underlying engine provides its own thread
// safety for concurrent operations.
type Connection struct {
	mode Mode
	eng  engine.Database
}

// Connect validates opts against cfg and constructs a connection in one of
// three modes, in priority order: a sync URL selects replica mode, a
// remote-scheme target selects pure-remote mode, anything else is a local
// file resolved against cfg.BasePath.
func Connect(cfg *Config, opts ConnectOptions) (*Connection, error) {
	encryption := opts.Encryption
	if encryption == nil {
		encryption = cfg.Encryption
	}

	var key []byte
	if encryption != nil {
		if err := encryption.Validate(); err != nil {
			return nil, err
		}
		key = encryption.Key
	}

	var mode Mode
	switch {
	case opts.SyncURL != "":
		mode = ModeReplica
	case IsRemoteTarget(opts.Target):
		mode = ModeRemote
	default:
		mode = ModeLocal
	}

	eng, err := buildGuarded(func() (engine.Database, error) {
		switch mode {
		case ModeReplica:
			path, err := ResolveLocalPath(opts.Target, cfg.BasePath, cfg.AllowAbsolutePaths)
			if err != nil {
				return nil, err
			}
			return engine.OpenReplica(path, opts.SyncURL, opts.AuthToken, key)
		case ModeRemote:
			// Encryption is meaningless without a local file; it is ignored
			// here just as the engine would ignore it.
			return engine.OpenRemote(opts.Target, opts.AuthToken)
		default:
			path, err := ResolveLocalPath(opts.Target, cfg.BasePath, cfg.AllowAbsolutePaths)
			if err != nil {
				return nil, err
			}
			return engine.OpenLocal(path, key)
		}
	})
	if err != nil {
		return nil, err
	}

	return &Connection{mode: mode, eng: eng}, nil
}

// buildGuarded invokes the engine builder inside a panic-to-error boundary.
// The libsql builder performs unchecked parsing on caller-controlled strings
// (particularly the sync URL) and can panic instead of returning an error;
// without this boundary a malformed URL would crash the host or leave the
// request without a response forever. This is the one call site where a
// dependency may violate the errors-return contract, so containment lives
// here and nowhere else.
func buildGuarded(build func() (engine.Database, error)) (eng engine.Database, err error) {
	defer func() {
		if r := recover(); r != nil {
			eng = nil
			err = NewError(KindInvalidDBURL,
				"engine panicked while building the database (%v) - check the URL format (expected libsql://... or https://...)", r)
		}
	}()

	eng, err = build()
	if err != nil {
		return nil, mapEngineError(err)
	}
	return eng, nil
}

// mapEngineError folds engine sentinels and resolver errors into the
// taxonomy. Untagged errors are engine failures.
func mapEngineError(err error) error {
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}
	switch {
	case errors.Is(err, engine.ErrReplicationNotSupported),
		errors.Is(err, engine.ErrRemoteNotSupported),
		errors.Is(err, engine.ErrEncryptionNotSupported):
		return WrapError(KindInvalidDBURL, err, "")
	default:
		return WrapError(KindEngine, err, "")
	}
}

// Mode reports which mode the connection was built in.
func (c *Connection) Mode() Mode { return c.mode }

// DB exposes the underlying SQL handle for the query executor and for
// clients (such as the migration engine) that need read access.
func (c *Connection) DB() *sqlx.DB { return c.eng.Handle() }

// Sync pulls the latest remote state into a replica-mode connection. For
// local and pure-remote connections it succeeds without doing anything, so
// callers may invoke it unconditionally.
func (c *Connection) Sync() error {
	if c.mode != ModeReplica {
		return nil
	}
	if err := c.eng.Sync(); err != nil {
		return mapEngineError(err)
	}
	return nil
}

// Close releases the engine handle. The connection must not be used
// afterwards.
func (c *Connection) Close() error {
	if err := c.eng.Close(); err != nil {
		return mapEngineError(err)
	}
	return nil
}
