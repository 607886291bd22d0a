package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration is a single versioned schema change.
type Migration struct {
	Version     int
	Description string
	Up          string
	Down        string
}

// MigrationStatus reports whether a migration has been applied.
type MigrationStatus struct {
	Version     int
	Description string
	Applied     bool
	AppliedAt   string
}

func loadMigrations() ([]Migration, error) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		name := entry.Name()
		// 001_initial.up.sql
		base := strings.TrimSuffix(name, ".sql")
		direction := ""
		switch {
		case strings.HasSuffix(base, ".up"):
			direction = "up"
			base = strings.TrimSuffix(base, ".up")
		case strings.HasSuffix(base, ".down"):
			direction = "down"
			base = strings.TrimSuffix(base, ".down")
		default:
			continue
		}

		versionStr, description, _ := strings.Cut(base, "_")
		version, err := strconv.Atoi(versionStr)
		if err != nil {
			return nil, fmt.Errorf("invalid migration file name %q: %w", name, err)
		}

		data, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &Migration{Version: version, Description: strings.ReplaceAll(description, "_", " ")}
			byVersion[version] = m
		}
		if direction == "up" {
			m.Up = string(data)
		} else {
			m.Down = string(data)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" {
			return nil, fmt.Errorf("migration %d has no up script", m.Version)
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func (db *DB) ensureMigrationsTable(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	return nil
}

func (db *DB) appliedVersions(ctx context.Context) (map[int]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT version, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]string)
	for rows.Next() {
		var version int
		var appliedAt string
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan schema_migrations: %w", err)
		}
		applied[version] = appliedAt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schema_migrations: %w", err)
	}
	return applied, nil
}

// MigrateUp applies all pending migrations and returns how many ran.
func (db *DB) MigrateUp(ctx context.Context) (int, error) {
	if err := db.ensureMigrationsTable(ctx); err != nil {
		return 0, err
	}

	migrations, err := loadMigrations()
	if err != nil {
		return 0, err
	}

	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range migrations {
		if _, ok := applied[m.Version]; ok {
			continue
		}

		err := db.Transaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.Up); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.Version, err)
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO schema_migrations (version, description, applied_at)
				VALUES (?, ?, ?)
			`, m.Version, m.Description, time.Now().UTC().Format(time.RFC3339))
			return err
		})
		if err != nil {
			return count, err
		}

		db.logger.Debug().Int("version", m.Version).Str("description", m.Description).Msg("applied migration")
		count++
	}

	return count, nil
}

// MigrateDown rolls back the most recent migration. Returns false when
// nothing was applied.
func (db *DB) MigrateDown(ctx context.Context) (bool, error) {
	if err := db.ensureMigrationsTable(ctx); err != nil {
		return false, err
	}

	var version int
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return false, fmt.Errorf("failed to read schema version: %w", err)
	}
	if version == 0 {
		return false, nil
	}

	migrations, err := loadMigrations()
	if err != nil {
		return false, err
	}

	var target *Migration
	for i := range migrations {
		if migrations[i].Version == version {
			target = &migrations[i]
			break
		}
	}
	if target == nil || target.Down == "" {
		return false, fmt.Errorf("no down migration for version %d", version)
	}

	err = db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, target.Down); err != nil {
			return fmt.Errorf("rollback of migration %d failed: %w", version, err)
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = ?`, version)
		return err
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Migrate applies all pending migrations.
func (db *DB) Migrate(ctx context.Context) error {
	_, err := db.MigrateUp(ctx)
	return err
}

// SchemaVersion returns the highest applied migration version.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	if err := db.ensureMigrationsTable(ctx); err != nil {
		return 0, err
	}
	var version int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// MigrationStatus lists every known migration and whether it is applied.
func (db *DB) MigrationStatus(ctx context.Context) ([]MigrationStatus, error) {
	if err := db.ensureMigrationsTable(ctx); err != nil {
		return nil, err
	}
	migrations, err := loadMigrations()
	if err != nil {
		return nil, err
	}
	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		at, ok := applied[m.Version]
		out = append(out, MigrationStatus{
			Version:     m.Version,
			Description: m.Description,
			Applied:     ok,
			AppliedAt:   at,
		})
	}
	return out, nil
}
