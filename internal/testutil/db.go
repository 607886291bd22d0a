package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tOgg1/missiv/internal/db"
)

// NewDB returns a migrated in-memory database closed at test cleanup.
// In-memory databases hold a single connection, so concurrent writers
// queue instead of contending; use NewFileDB to exercise contention.
func NewDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.OpenInMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return migrated(t, database)
}

// NewFileDB returns a migrated WAL database in a temp directory.
func NewFileDB(t *testing.T) *db.DB {
	t.Helper()
	cfg := db.DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "missiv.db")
	database, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return migrated(t, database)
}

func migrated(t *testing.T, database *db.DB) *db.DB {
	t.Helper()
	t.Cleanup(func() { _ = database.Close() })
	if err := database.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return database
}
