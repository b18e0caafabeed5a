// Package database provides SQLite access for the session store.
package database

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	// SQLite driver for database/sql
	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath selects a private in-memory database that disappears with the process.
const MemoryPath = ":memory:"

// DB wraps a sql.DB connection with additional functionality.
type DB struct {
	*sql.DB
}

// New opens the database at dbPath, creating the parent directory for file
// databases.
func New(dbPath string) (*DB, error) {
	inMemory := dbPath == MemoryPath || strings.HasPrefix(dbPath, "file::memory:")

	dsn := dbPath + "?_foreign_keys=on"
	if !inMemory {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// Every connection to :memory: is a separate database.
	if inMemory {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// Migrate runs all pending database migrations.
func (db *DB) Migrate() error {
	return runMigrations(db.DB)
}
