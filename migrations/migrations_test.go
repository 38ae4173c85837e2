package migrations

import (
	"reflect"
	"testing"

	"github.com/sqlbridge/sqlbridge/dbhost"
)

func testConnection(t *testing.T) *dbhost.Connection {
	t.Helper()
	cfg, err := dbhost.NewConfig(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	conn, err := dbhost.Connect(cfg, dbhost.ConnectOptions{Target: "sqlite:test.db"})
	if err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func trackedCount(t *testing.T, conn *dbhost.Connection) int64 {
	t.Helper()
	rows, err := conn.Select("SELECT COUNT(*) AS n FROM "+TrackingTable, nil)
	if err != nil {
		t.Fatalf("Failed to count tracking rows: %v", err)
	}
	return rows[0].Values[0].(int64)
}

func TestApplyRunsInOrder(t *testing.T) {
	conn := testConnection(t)

	files := map[string]string{
		"002_data.sql":   "INSERT INTO users (name) VALUES ('a'); INSERT INTO users (name) VALUES ('b');",
		"001_schema.sql": "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)",
	}

	applied, err := Apply(conn, files)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	want := []string{"001_schema.sql", "002_data.sql"}
	if !reflect.DeepEqual(applied, want) {
		t.Errorf("Expected order %v, got %v", want, applied)
	}

	rows, err := conn.Select("SELECT COUNT(*) AS n FROM users", nil)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if got := rows[0].Values[0]; got != int64(2) {
		t.Errorf("Expected 2 users, got %v", got)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	conn := testConnection(t)

	files := map[string]string{
		"001_schema.sql": "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)",
		"002_index.sql":  "CREATE INDEX idx_users_name ON users (name)",
	}

	if _, err := Apply(conn, files); err != nil {
		t.Fatalf("First Apply returned error: %v", err)
	}
	applied, err := Apply(conn, files)
	if err != nil {
		t.Fatalf("Second Apply returned error: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("Expected no migrations on re-run, got %v", applied)
	}

	if got := trackedCount(t, conn); got != 2 {
		t.Errorf("Expected exactly 2 tracking rows, got %d", got)
	}
}

func TestApplySkipsFilesWithoutNumericPrefix(t *testing.T) {
	conn := testConnection(t)

	files := map[string]string{
		"001_schema.sql": "CREATE TABLE users (id INTEGER PRIMARY KEY)",
		"notes.txt":      "CREATE TABLE never (id INTEGER)",
	}

	applied, err := Apply(conn, files)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if !reflect.DeepEqual(applied, []string{"001_schema.sql"}) {
		t.Errorf("Expected only the prefixed file, got %v", applied)
	}

	if _, err := conn.Select("SELECT * FROM never", nil); err == nil {
		t.Error("Expected the unprefixed file to be skipped")
	}
}

func TestApplyFailedMigrationIsNotRecorded(t *testing.T) {
	conn := testConnection(t)

	files := map[string]string{
		"001_bad.sql": "CREATE TABLE t (id INTEGER); INSERT INTO nonexistent (id) VALUES (1)",
	}

	if _, err := Apply(conn, files); err == nil {
		t.Fatal("Expected error, got nil")
	}

	// Neither the schema change nor the tracking row may survive.
	if _, err := conn.Select("SELECT * FROM t", nil); err == nil {
		t.Error("Expected failed migration's schema change to be rolled back")
	}
	if got := trackedCount(t, conn); got != 0 {
		t.Errorf("Expected no tracking rows, got %d", got)
	}

	// Fixing the file under the same name applies it cleanly.
	files["001_bad.sql"] = "CREATE TABLE t (id INTEGER)"
	applied, err := Apply(conn, files)
	if err != nil {
		t.Fatalf("Apply after fix returned error: %v", err)
	}
	if len(applied) != 1 {
		t.Errorf("Expected 1 applied migration, got %v", applied)
	}
}
