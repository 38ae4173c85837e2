package dbhost

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sqlbridge/sqlbridge/dbhost/engine"
)

// testConfig builds a config rooted in a fresh temp directory.
func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := NewConfig(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	return cfg
}

// testConnection opens a local file-backed connection for test use.
func testConnection(t *testing.T) *Connection {
	t.Helper()
	conn, err := Connect(testConfig(t), ConnectOptions{Target: "sqlite:test.db"})
	if err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestConnectLocalCreatesFile(t *testing.T) {
	cfg := testConfig(t)

	conn, err := Connect(cfg, ConnectOptions{Target: "sqlite:app.db"})
	if err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	defer conn.Close()

	if conn.Mode() != ModeLocal {
		t.Errorf("Expected local mode, got %s", conn.Mode())
	}
	if _, err := conn.Execute("CREATE TABLE t (id INTEGER)", nil); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.BasePath, "app.db")); err != nil {
		t.Errorf("Expected database file to exist: %v", err)
	}
}

func TestConnectRejectsEscapingTarget(t *testing.T) {
	cfg := testConfig(t)

	_, err := Connect(cfg, ConnectOptions{Target: "sqlite:../escape.db"})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if KindOf(err) != KindInvalidDBURL {
		t.Errorf("Expected kind %s, got %s", KindInvalidDBURL, KindOf(err))
	}
	if _, statErr := os.Stat(filepath.Join(filepath.Dir(cfg.BasePath), "escape.db")); !os.IsNotExist(statErr) {
		t.Errorf("Expected no file outside the base directory, stat: %v", statErr)
	}
}

func TestConnectAbsoluteTargetRequiresOptIn(t *testing.T) {
	cfg := testConfig(t)
	target := "sqlite:" + filepath.Join(t.TempDir(), "abs.db")

	_, err := Connect(cfg, ConnectOptions{Target: target})
	if err == nil {
		t.Fatal("Expected error for absolute target, got nil")
	}
	if KindOf(err) != KindInvalidDBURL {
		t.Errorf("Expected kind %s, got %s", KindInvalidDBURL, KindOf(err))
	}

	cfg.AllowAbsolutePaths = true
	conn, err := Connect(cfg, ConnectOptions{Target: target})
	if err != nil {
		t.Fatalf("Connect with AllowAbsolutePaths returned error: %v", err)
	}
	conn.Close()
}

func TestConnectRejectsShortEncryptionKey(t *testing.T) {
	cfg := testConfig(t)

	_, err := Connect(cfg, ConnectOptions{
		Target: "sqlite:app.db",
		Encryption: &EncryptionConfig{
			Cipher: CipherAES256CBC,
			Key:    make([]byte, 31),
		},
	})
	if err == nil {
		t.Fatal("Expected error for a 31-byte key, got nil")
	}
	if KindOf(err) != KindInvalidDBURL {
		t.Errorf("Expected kind %s, got %s", KindInvalidDBURL, KindOf(err))
	}
}

func TestConnectRejectsUnknownCipher(t *testing.T) {
	cfg := testConfig(t)

	_, err := Connect(cfg, ConnectOptions{
		Target: "sqlite:app.db",
		Encryption: &EncryptionConfig{
			Cipher: "rot13",
			Key:    make([]byte, 32),
		},
	})
	if err == nil {
		t.Fatal("Expected error for unknown cipher, got nil")
	}
}

func TestConnectReplicaWithoutCapability(t *testing.T) {
	if engine.HasReplication() {
		t.Skip("built with replication support")
	}
	cfg := testConfig(t)

	// Malformed or not, a sync URL must produce a typed error within bounded
	// time rather than hanging the caller.
	done := make(chan error, 1)
	go func() {
		_, err := Connect(cfg, ConnectOptions{
			Target:  "sqlite:replica.db",
			SyncURL: "libsql://bad url with spaces",
		})
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Expected error, got nil")
		}
		if KindOf(err) != KindInvalidDBURL {
			t.Errorf("Expected kind %s, got %s", KindInvalidDBURL, KindOf(err))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Connect did not return within bounded time")
	}
}

func TestBuildGuardedConvertsPanic(t *testing.T) {
	_, err := buildGuarded(func() (engine.Database, error) {
		panic("malformed URL blew up the builder")
	})
	if err == nil {
		t.Fatal("Expected error from panicking builder, got nil")
	}
	if KindOf(err) != KindInvalidDBURL {
		t.Errorf("Expected kind %s, got %s", KindInvalidDBURL, KindOf(err))
	}
}

func TestSyncIsNoopForLocalConnections(t *testing.T) {
	conn := testConnection(t)

	if err := conn.Sync(); err != nil {
		t.Errorf("Sync on a local connection returned error: %v", err)
	}
}

func TestConnectMemoryTarget(t *testing.T) {
	conn, err := Connect(testConfig(t), ConnectOptions{Target: "sqlite::memory:"})
	if err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Execute("CREATE TABLE t (id INTEGER)", nil); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
}

func TestMemoryTargetSharesOneDatabase(t *testing.T) {
	conn, err := Connect(testConfig(t), ConnectOptions{Target: "sqlite::memory:"})
	if err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Execute("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)", nil); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	// Keep the current session busy with a slow read. If the handle were
	// allowed to grow its pool, the inserts below would land on fresh empty
	// databases without the items table.
	done := make(chan error, 1)
	go func() {
		_, err := conn.Select(
			"WITH RECURSIVE c(x) AS (SELECT 1 UNION ALL SELECT x+1 FROM c WHERE x < 300000) SELECT count(*) FROM c",
			nil)
		done <- err
	}()

	for i := 0; i < 10; i++ {
		if _, err := conn.Execute("INSERT INTO items (name) VALUES ('x')", nil); err != nil {
			t.Fatalf("Insert during concurrent select failed: %v", err)
		}
	}

	if err := <-done; err != nil {
		t.Fatalf("Concurrent select returned error: %v", err)
	}

	rows, err := conn.Select("SELECT count(*) AS n FROM items", nil)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if n, _ := rows[0].Get("n"); n != int64(10) {
		t.Errorf("Expected 10 rows, got %v", n)
	}
}
