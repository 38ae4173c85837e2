package dbhost

import (
	"sync"
	"testing"
)

func TestPoolOpenIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	pool := NewPool()

	builds := 0
	build := func() (*Connection, error) {
		builds++
		return Connect(cfg, ConnectOptions{Target: "sqlite:app.db"})
	}

	first, err := pool.Open("app.db", build)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	// A repeat open must return the same connection without invoking the
	// builder, even when the caller supplies different parameters.
	second, err := pool.Open("app.db", func() (*Connection, error) {
		builds++
		return Connect(cfg, ConnectOptions{
			Target:     "sqlite:app.db",
			Encryption: &EncryptionConfig{Cipher: CipherAES256CBC, Key: make([]byte, 32)},
		})
	})
	if err != nil {
		t.Fatalf("Repeat Open returned error: %v", err)
	}
	if first != second {
		t.Error("Expected repeat Open to return the existing connection")
	}
	if builds != 1 {
		t.Errorf("Expected 1 build, got %d", builds)
	}

	pool.CloseAll()
}

func TestPoolGetUnknownIdentity(t *testing.T) {
	pool := NewPool()

	_, err := pool.Get("missing.db")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if KindOf(err) != KindNotLoaded {
		t.Errorf("Expected kind %s, got %s", KindNotLoaded, KindOf(err))
	}
}

func TestPoolClose(t *testing.T) {
	cfg := testConfig(t)
	pool := NewPool()

	_, err := pool.Open("app.db", func() (*Connection, error) {
		return Connect(cfg, ConnectOptions{Target: "sqlite:app.db"})
	})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	if !pool.Close("app.db") {
		t.Error("Expected Close to report an existing entry")
	}
	if pool.Close("app.db") {
		t.Error("Expected Close on a removed entry to report false")
	}
	if _, err := pool.Get("app.db"); KindOf(err) != KindNotLoaded {
		t.Errorf("Expected not-loaded after close, got %v", err)
	}
}

func TestPoolCloseAll(t *testing.T) {
	cfg := testConfig(t)
	pool := NewPool()

	if pool.CloseAll() {
		t.Error("Expected CloseAll on an empty pool to report false")
	}

	for _, name := range []string{"a.db", "b.db"} {
		target := "sqlite:" + name
		_, err := pool.Open(name, func() (*Connection, error) {
			return Connect(cfg, ConnectOptions{Target: target})
		})
		if err != nil {
			t.Fatalf("Open %s returned error: %v", name, err)
		}
	}

	if !pool.CloseAll() {
		t.Error("Expected CloseAll to report existing entries")
	}
	if pool.CloseAll() {
		t.Error("Expected second CloseAll to report false")
	}
}

func TestPoolConcurrentOpenSingleConnection(t *testing.T) {
	cfg := testConfig(t)
	pool := NewPool()

	var wg sync.WaitGroup
	conns := make([]*Connection, 8)
	for i := range conns {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn, err := pool.Open("app.db", func() (*Connection, error) {
				return Connect(cfg, ConnectOptions{Target: "sqlite:app.db"})
			})
			if err != nil {
				t.Errorf("Open returned error: %v", err)
				return
			}
			conns[i] = conn
		}(i)
	}
	wg.Wait()

	final, err := pool.Get("app.db")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	for i, conn := range conns {
		if conn != final {
			t.Errorf("Racer %d holds a connection that is not the pooled one", i)
		}
	}

	pool.CloseAll()
}
