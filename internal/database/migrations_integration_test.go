package database

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew_InMemory(t *testing.T) {
	db, err := New(MemoryPath)
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	// A second statement must see the schema created by the first; this only
	// holds when the pool is pinned to a single connection.
	if _, err := db.Exec(`INSERT INTO update_runs (id, host_name, app_name, project_id, requested_by, started_at)
		VALUES ('r1', 'prod', 'billing', 'team/billing', 'user', CURRENT_TIMESTAMP)`); err != nil {
		t.Fatalf("failed to insert into update_runs: %v", err)
	}

	if db.Stats().MaxOpenConnections != 1 {
		t.Errorf("expected max open connections 1, got %d", db.Stats().MaxOpenConnections)
	}
}

func TestNew_FileCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	dbPath := filepath.Join(dir, "radar.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to open file database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("expected directory to be created: %v", err)
	}

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("second migrate should be a no-op: %v", err)
	}
}
