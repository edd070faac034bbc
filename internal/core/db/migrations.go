package db

import (
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	embeddedmigrations "github.com/solatis/groundskeeper/migrations"
)

// MigrationStatus represents the state of a single migration.
type MigrationStatus struct {
	ID          string
	Checksum    string
	Applied     bool
	AppliedAt   *time.Time
	ExecutionMs int64
}

type migration struct {
	ID       string
	Checksum string
	SQL      string
}

type appliedMigration struct {
	ID          string    `db:"migration_id"`
	Checksum    string    `db:"checksum"`
	AppliedAt   Timestamp `db:"applied_at"`
	ExecutionMs int64     `db:"execution_ms"`
}

// MigrateUp applies every pending embedded migration for the connection's
// driver, each in its own transaction. It refuses to run when an applied
// migration no longer matches its embedded checksum.
func MigrateUp(db *sqlx.DB) error {
	migrations, applied, err := loadMigrations(db)
	if err != nil {
		return err
	}
	if err := verifyApplied(migrations, applied); err != nil {
		return fmt.Errorf("migration checksum validation failed: %w", err)
	}

	for _, m := range migrations {
		if _, ok := applied[m.ID]; ok {
			continue
		}
		if err := runMigration(db, m); err != nil {
			return err
		}
	}
	return nil
}

// MigrateStatus lists embedded migrations in order with their applied state.
func MigrateStatus(db *sqlx.DB) ([]MigrationStatus, error) {
	migrations, applied, err := loadMigrations(db)
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		a, ok := applied[m.ID]
		if !ok {
			statuses = append(statuses, MigrationStatus{ID: m.ID, Checksum: m.Checksum})
			continue
		}
		statuses = append(statuses, MigrationStatus{
			ID:          a.ID,
			Checksum:    a.Checksum,
			Applied:     true,
			AppliedAt:   timePtr(&a.AppliedAt),
			ExecutionMs: a.ExecutionMs,
		})
	}
	return statuses, nil
}

// loadMigrations returns the embedded migrations for db's driver, sorted by
// file name, and the rows already recorded in the migrations table.
func loadMigrations(db *sqlx.DB) ([]migration, map[string]appliedMigration, error) {
	fsys, dir, err := migrationsFor(db.DriverName())
	if err != nil {
		return nil, nil, err
	}
	if _, err := db.Exec(migrationsTableSQL(db.DriverName())); err != nil {
		return nil, nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := parseMigrationFiles(fsys, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse migrations: %w", err)
	}

	var rows []appliedMigration
	if err := db.Select(&rows, "SELECT migration_id, checksum, applied_at, execution_ms FROM migrations"); err != nil {
		return nil, nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	applied := make(map[string]appliedMigration, len(rows))
	for _, r := range rows {
		applied[r.ID] = r
	}
	return migrations, applied, nil
}

func verifyApplied(migrations []migration, applied map[string]appliedMigration) error {
	embedded := make(map[string]string, len(migrations))
	for _, m := range migrations {
		embedded[m.ID] = m.Checksum
	}
	for id, a := range applied {
		want, ok := embedded[id]
		if !ok {
			return fmt.Errorf("migration %s exists in database but not in embedded files", id)
		}
		if a.Checksum != want {
			return fmt.Errorf("checksum mismatch for migration %s: expected %s, got %s", id, want, a.Checksum)
		}
	}
	return nil
}

func migrationsFor(driver string) (embed.FS, string, error) {
	switch driver {
	case "sqlite3":
		return embeddedmigrations.SqliteMigrations, "sqlite", nil
	case "postgres":
		return embeddedmigrations.PostgresMigrations, "postgres", nil
	default:
		return embed.FS{}, "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func parseMigrationFiles(fsys embed.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var migrations []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		content, err := fsys.ReadFile(path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		migrations = append(migrations, migration{
			ID:       e.Name(),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
			SQL:      string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].ID < migrations[j].ID
	})
	return migrations, nil
}

// migrationsTableSQL must stay in step with the migrations table in
// 001_initial_schema.sql.
func migrationsTableSQL(driver string) string {
	if driver == "sqlite3" {
		return `
			CREATE TABLE IF NOT EXISTS migrations (
				migration_id TEXT PRIMARY KEY,
				checksum TEXT NOT NULL,
				applied_at TEXT NOT NULL,
				execution_ms INTEGER NOT NULL,
				CHECK (applied_at LIKE '____-__-__T__:__:__Z')
			)`
	}
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			migration_id TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMP WITHOUT TIME ZONE NOT NULL,
			execution_ms INTEGER NOT NULL
		)`
}

// runMigration executes m and records it in one transaction.
func runMigration(db *sqlx.DB, m migration) error {
	start := time.Now()
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %s: %w", m.ID, err)
	}
	defer tx.Rollback()

	// lib/pq rejects multiple statements in one Exec.
	for _, stmt := range strings.Split(stripComments(m.SQL), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply migration %s: statement failed: %w", m.ID, err)
		}
	}

	var appliedAt any = time.Now().UTC()
	if tx.DriverName() == "sqlite3" {
		appliedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if _, err := tx.Exec(
		tx.Rebind("INSERT INTO migrations (migration_id, checksum, applied_at, execution_ms) VALUES (?, ?, ?, ?)"),
		m.ID, m.Checksum, appliedAt, time.Since(start).Milliseconds(),
	); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.ID, err)
	}
	return nil
}

// stripComments drops whole-line "--" comments so a statement preceded by a
// comment block is still executed.
func stripComments(sql string) string {
	lines := strings.Split(sql, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
