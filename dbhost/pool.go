package dbhost

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Pool is the process-wide registry of live connections, keyed by target
// identity. It is constructed once at startup and passed explicitly to every
// operation; there is no ambient global.
//
// The mutex guards only the map. It is never held while an engine operation
// is in flight: callers take the shared *Connection inside the critical
// section and release the lock before issuing queries, so two queries on
// different targets contend on pool access for only a few instructions.
type Pool struct {
	mu    sync.Mutex
	conns map[string]*Connection
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{conns: make(map[string]*Connection)}
}

// Open returns the live connection for identity, building one with build if
// none exists. Open is idempotent: if identity is already present the
// existing connection is returned unchanged and build is never invoked, so
// differing parameters on a repeat call have no effect.
//
// build runs outside the pool lock. If two callers race to open the same
// identity, the loser's freshly built connection is closed and the winner's
// is returned, preserving at most one live connection per identity.
func (p *Pool) Open(identity string, build func() (*Connection, error)) (*Connection, error) {
	p.mu.Lock()
	if conn, ok := p.conns[identity]; ok {
		p.mu.Unlock()
		return conn, nil
	}
	p.mu.Unlock()

	conn, err := build()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if existing, ok := p.conns[identity]; ok {
		p.mu.Unlock()
		if cerr := conn.Close(); cerr != nil {
			log.WithError(cerr).Warn("failed to close connection lost to a concurrent open")
		}
		return existing, nil
	}
	p.conns[identity] = conn
	p.mu.Unlock()

	return conn, nil
}

// Get returns the live connection for identity, or a not-loaded error.
func (p *Pool) Get(identity string) (*Connection, error) {
	p.mu.Lock()
	conn, ok := p.conns[identity]
	p.mu.Unlock()

	if !ok {
		return nil, NewError(KindNotLoaded, "%s", identity)
	}
	return conn, nil
}

// Close removes and closes the connection for identity, reporting whether an
// entry existed. The engine close happens after the lock is released.
func (p *Pool) Close(identity string) bool {
	p.mu.Lock()
	conn, ok := p.conns[identity]
	if ok {
		delete(p.conns, identity)
	}
	p.mu.Unlock()

	if ok {
		conn.Close()
	}
	return ok
}

// CloseAll removes and closes every connection, reporting whether any
// existed.
func (p *Pool) CloseAll() bool {
	p.mu.Lock()
	conns := p.conns
	p.conns = make(map[string]*Connection)
	p.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
	return len(conns) > 0
}
