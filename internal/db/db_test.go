package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(context.Background()); err != nil {
		database.Close()
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func setupFileDB(t *testing.T) *DB {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "missiv.db")
	database, err := Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(context.Background()); err != nil {
		database.Close()
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	ctx := context.Background()

	database, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer database.Close()

	applied, err := database.MigrateUp(ctx)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if applied == 0 {
		t.Fatal("expected at least one migration to apply")
	}

	again, err := database.MigrateUp(ctx)
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if again != 0 {
		t.Fatalf("expected no pending migrations, got %d", again)
	}

	version, err := database.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != 2 {
		t.Fatalf("expected schema version 2, got %d", version)
	}

	status, err := database.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus: %v", err)
	}
	if len(status) != 2 || !status[0].Applied || !status[1].Applied {
		t.Fatalf("unexpected migration status: %+v", status)
	}
}

func TestMigrateDown(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	defer database.Close()

	rolledBack, err := database.MigrateDown(ctx)
	if err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}
	if !rolledBack {
		t.Fatal("expected a migration to roll back")
	}
	if hasColumn(t, database, "events", "read_at") {
		t.Fatal("expected events.read_at to be dropped")
	}
	if !hasColumn(t, database, "events", "entity_id") {
		t.Fatal("expected events table to survive the first rollback")
	}

	if rolledBack, err = database.MigrateDown(ctx); err != nil || !rolledBack {
		t.Fatalf("second MigrateDown = %v, %v", rolledBack, err)
	}
	var name string
	err = database.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'mivs'`).Scan(&name)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected mivs table to be dropped, got %v", err)
	}

	rolledBack, err = database.MigrateDown(ctx)
	if err != nil {
		t.Fatalf("third MigrateDown: %v", err)
	}
	if rolledBack {
		t.Fatal("expected nothing left to roll back")
	}

	if _, err := database.MigrateUp(ctx); err != nil {
		t.Fatalf("MigrateUp after rollback: %v", err)
	}
	if !hasColumn(t, database, "events", "read_at") {
		t.Fatal("expected events.read_at after re-applying migrations")
	}
}

func hasColumn(t *testing.T, database *DB, table, column string) bool {
	t.Helper()
	var n int
	err := database.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		t.Fatalf("table_info %s: %v", table, err)
	}
	return n > 0
}

func TestTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	defer database.Close()

	boom := errors.New("boom")
	err := database.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversations (id, subject, origin_desk, created_at, updated_at)
			VALUES ('c1', 's', '1000000001', ?, ?)
		`, formatTime(time.Now()), formatTime(time.Now())); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var count int
	if err := database.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback, found %d conversations", count)
	}
}

func TestOpenFileDatabase(t *testing.T) {
	database := setupFileDB(t)

	var mode string
	if err := database.QueryRow(`PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("expected wal journal mode, got %q", mode)
	}

	var fk int
	if err := database.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Fatal("expected foreign keys enabled")
	}
}

func TestTimeRoundTrip(t *testing.T) {
	in := time.Date(2026, 5, 6, 7, 8, 9, 123456789, time.FixedZone("x", 3600))
	out := parseTime(formatTime(in))
	if !out.Equal(in) {
		t.Fatalf("expected %v, got %v", in, out)
	}

	earlier := formatTime(time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC))
	later := formatTime(time.Date(2026, 5, 6, 7, 8, 9, 5, time.UTC))
	if !(earlier < later) {
		t.Fatalf("expected lexical order %q < %q", earlier, later)
	}
}
