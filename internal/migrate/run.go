// Package migrate applies the grading schema migrations embedded in this
// package. Versions are the lexicographically ordered file names under
// migrations/ (0001_grading_core.sql onward); applied versions are recorded
// in schema_migrations.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Advisory lock namespace serializing migration runs. The completion and
// outcome runners migrate on boot and may start together.
const advisoryLockMigrateMajor int64 = 2000

// Run applies every pending migration in version order. Safe to call from
// multiple processes at once; later callers see the versions the first one
// recorded and skip them.
func Run(ctx context.Context, db *sql.DB) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn for migrations: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx,
		"SELECT pg_advisory_lock($1::integer, 0)", advisoryLockMigrateMajor,
	); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx),
			"SELECT pg_advisory_unlock($1::integer, 0)", advisoryLockMigrateMajor)
	}()

	if _, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, m := range embeddedMigrations() {
		if err := apply(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

// migration is one versioned schema step.
type migration struct {
	version string
	file    string
}

func embeddedMigrations() []migration {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		// The embed directive guarantees the directory exists.
		return nil
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	migrations := make([]migration, 0, len(files))
	for _, f := range files {
		migrations = append(migrations, migration{
			version: strings.TrimSuffix(f, ".sql"),
			file:    f,
		})
	}
	return migrations
}

func alreadyApplied(ctx context.Context, db *sql.DB, m migration) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`
	if err := db.QueryRowContext(ctx, query, m.version).Scan(&exists); err != nil {
		return false, fmt.Errorf("check migration %s: %w", m.file, err)
	}
	return exists, nil
}

// apply runs one migration and records its version in the same transaction,
// so a failed step leaves no partial schema behind.
func apply(ctx context.Context, db *sql.DB, m migration) error {
	applied, err := alreadyApplied(ctx, db, m)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	sqlBytes, err := migrationsFS.ReadFile("migrations/" + m.file)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", m.file, err)
	}

	logger := slog.Default().With("component", "migrations")
	logger.InfoContext(ctx, "applying migration", "version", m.version)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			logger.ErrorContext(ctx, "failed to rollback migration",
				"err", rollbackErr,
				"migration_file", m.file,
			)
		}
	}()

	if _, execErr := tx.ExecContext(ctx, string(sqlBytes)); execErr != nil {
		return fmt.Errorf("exec migration %s: %w", m.file, execErr)
	}
	if _, insErr := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version) VALUES ($1)`, m.version,
	); insErr != nil {
		return fmt.Errorf("record migration %s: %w", m.file, insErr)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("commit migration %s: %w", m.file, commitErr)
	}

	return nil
}
