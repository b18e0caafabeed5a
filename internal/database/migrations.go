package database

import (
	"database/sql"
	"fmt"
)

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "create_update_runs_table",
		sql: `CREATE TABLE IF NOT EXISTS update_runs (
			id TEXT PRIMARY KEY,
			host_name TEXT NOT NULL,
			app_name TEXT NOT NULL,
			project_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'running',
			error TEXT,
			requested_by TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			finished_at DATETIME
		)`,
	},
	{
		name: "index_update_runs_app",
		sql:  `CREATE INDEX IF NOT EXISTS idx_update_runs_app ON update_runs(host_name, app_name)`,
	},
	{
		name: "index_update_runs_started_at",
		sql:  `CREATE INDEX IF NOT EXISTS idx_update_runs_started_at ON update_runs(started_at)`,
	},
}

func createMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		migration TEXT UNIQUE NOT NULL,
		batch INTEGER NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func hasMigration(db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM migrations WHERE migration = ?", name).Scan(&count)
	return count > 0, err
}

func recordMigration(db *sql.DB, name string, batch int) error {
	_, err := db.Exec("INSERT INTO migrations (migration, batch) VALUES (?, ?)", name, batch)
	return err
}

func nextBatch(db *sql.DB) (int, error) {
	var batch sql.NullInt64
	if err := db.QueryRow("SELECT MAX(batch) FROM migrations").Scan(&batch); err != nil {
		return 0, err
	}
	return int(batch.Int64) + 1, nil
}

func runMigrations(db *sql.DB) error {
	if err := createMigrationsTable(db); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	batch, err := nextBatch(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		applied, err := hasMigration(db, m.name)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		if err := recordMigration(db, m.name, batch); err != nil {
			return err
		}
	}
	return nil
}
