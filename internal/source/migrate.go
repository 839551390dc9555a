package source

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/kahfeatures/kahfeatures/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrateUp applies the bookkeeping schema (feature_sessions) to db.
// Dataset tables are not migrated; WriteSQLite recreates them per export.
func MigrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// Closing m would close db as well.
	m.Log = migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }

// SessionRecord is one exported session in feature_sessions.
type SessionRecord struct {
	ID      string
	Options json.RawMessage
	Tables  []string
	Created time.Time
}

// RecordSession migrates db if needed and stores rec, replacing any
// earlier record with the same ID.
func RecordSession(ctx context.Context, db *sql.DB, rec SessionRecord) error {
	if err := MigrateUp(db); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO feature_sessions (session_id, options, tables, created_at) VALUES (?, ?, ?, ?)`,
		rec.ID, string(rec.Options), strings.Join(rec.Tables, ","), rec.Created.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record session %s: %w", rec.ID, err)
	}
	return nil
}

// Sessions lists the recorded sessions, oldest first.
func Sessions(ctx context.Context, db *sql.DB) ([]SessionRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT session_id, options, tables, created_at FROM feature_sessions ORDER BY created_at, session_id`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var opts, tables, created string
		if err := rows.Scan(&rec.ID, &opts, &tables, &created); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rec.Options = json.RawMessage(opts)
		if tables != "" {
			rec.Tables = strings.Split(tables, ",")
		}
		if rec.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("session %s created_at: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
