package migrations

// Package migrations applies a pre-bundled, in-memory set of named SQL
// migration files against a connection, recording applied filenames in a
// tracking table inside the target database itself. Callers typically
// materialize the file set at build time with go:embed; this package never
// touches the filesystem.

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/sqlbridge/sqlbridge/dbhost"
)

// TrackingTable holds one row per applied migration, keyed by filename.
const TrackingTable = "_sqlbridge_migrations"

const trackingSchema = `CREATE TABLE IF NOT EXISTS ` + TrackingTable + ` (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hash TEXT NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// filePattern matches migration filenames: a leading numeric ordering key
// followed by a separator, e.g. "001_init.sql" or "20240101-users.sql".
// Files that don't match are skipped.
var filePattern = regexp.MustCompile(`^(\d+)[-_.]`)

type migration struct {
	order int64
	name  string
	sql   string
}

// Apply runs every pending migration from files against conn, in ascending
// order of each filename's numeric prefix. Each migration's statements plus
// its tracking-table insert execute as one atomic batch, so a migration is
// either fully applied and recorded or not applied at all. Re-invocation with
// the same set is a no-op for already-recorded files.
//
// Apply returns the names of the migrations it applied on this invocation.
func Apply(conn *dbhost.Connection, files map[string]string) ([]string, error) {
	if _, err := conn.Execute(trackingSchema, nil); err != nil {
		return nil, fmt.Errorf("failed to create migration tracking table: %w", err)
	}

	var recorded []string
	if err := conn.DB().Select(&recorded, "SELECT hash FROM "+TrackingTable); err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	applied := make(map[string]bool, len(recorded))
	for _, name := range recorded {
		applied[name] = true
	}

	pending := make([]migration, 0, len(files))
	for name, sql := range files {
		m := filePattern.FindStringSubmatch(name)
		if m == nil {
			log.WithField("file", name).Warn("skipping migration without a numeric prefix")
			continue
		}
		order, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			log.WithField("file", name).Warn("skipping migration with an unparseable prefix")
			continue
		}
		pending = append(pending, migration{order: order, name: name, sql: sql})
	}

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].order != pending[j].order {
			return pending[i].order < pending[j].order
		}
		return pending[i].name < pending[j].name
	})

	var ran []string
	for _, m := range pending {
		if applied[m.name] {
			continue
		}

		statements := splitStatements(m.sql)
		statements = append(statements, fmt.Sprintf(
			"INSERT INTO %s (hash) VALUES ('%s')",
			TrackingTable, strings.ReplaceAll(m.name, "'", "''")))

		if err := conn.Batch(statements); err != nil {
			return ran, fmt.Errorf("migration %s failed: %w", m.name, err)
		}
		log.WithField("file", m.name).Info("applied migration")
		ran = append(ran, m.name)
	}

	return ran, nil
}

// splitStatements breaks a migration file into individual statements on the
// ';' terminator, dropping empty fragments. A terminator inside a string
// literal or trigger body will mis-split; migration files are expected to
// avoid those constructs.
func splitStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	statements := make([]string, 0, len(parts))
	for _, part := range parts {
		stmt := strings.TrimSpace(part)
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
