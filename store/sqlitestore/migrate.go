package sqlitestore

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the latest schema version supported by the migrator.
const SchemaVersion = 2

// Migrate ensures the reminder schema exists and is at SchemaVersion.
func Migrate(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("migrate: db is nil")
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY);`); err != nil {
		return fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&current); err != nil {
		return fmt.Errorf("migrate: read current version: %w", err)
	}
	if current >= SchemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate: begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	steps := []struct {
		name string
		sql  string
	}{
		{"create lists table", `
			CREATE TABLE IF NOT EXISTS lists (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL UNIQUE COLLATE NOCASE
			);`},
		{"create reminders table", `
			CREATE TABLE IF NOT EXISTS reminders (
				id TEXT PRIMARY KEY,
				list_id TEXT NOT NULL,
				title TEXT NOT NULL,
				notes TEXT NOT NULL DEFAULT '',
				priority INTEGER NOT NULL DEFAULT 0,
				completed INTEGER NOT NULL DEFAULT 0,
				due_at TEXT NULL,
				created_at TEXT NOT NULL,
				modified_at TEXT NOT NULL,
				completed_at TEXT NULL,
				FOREIGN KEY(list_id) REFERENCES lists(id) ON DELETE CASCADE
			);`},
		{"create idx_reminders_list", `CREATE INDEX IF NOT EXISTS idx_reminders_list ON reminders(list_id, completed);`},
	}
	if current < 1 {
		for _, step := range steps {
			if _, err := tx.Exec(step.sql); err != nil {
				return fmt.Errorf("migrate: %s: %w", step.name, err)
			}
		}
	}
	if current < 2 {
		if err := normalizeTimestamps(tx); err != nil {
			return fmt.Errorf("migrate: normalize timestamps: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?);`, SchemaVersion); err != nil {
		return fmt.Errorf("migrate: record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit transaction: %w", err)
	}
	return nil
}

// normalizeTimestamps rewrites version 1 RFC3339Nano values, which carry
// local offsets and trimmed fractions, into timeLayout.
func normalizeTimestamps(tx *sql.Tx) error {
	type row struct {
		id     string
		values [4]sql.NullString
	}

	rows, err := tx.Query(`SELECT id, due_at, created_at, modified_at, completed_at FROM reminders`)
	if err != nil {
		return err
	}
	var pending []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.values[0], &r.values[1], &r.values[2], &r.values[3]); err != nil {
			_ = rows.Close()
			return err
		}
		pending = append(pending, r)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range pending {
		var args [4]any
		for i, v := range r.values {
			t, err := parseTime(v)
			if err != nil {
				return fmt.Errorf("reminder %s: %w", r.id, err)
			}
			args[i] = formatTime(t)
		}
		if _, err := tx.Exec(`UPDATE reminders SET due_at = ?, created_at = ?, modified_at = ?, completed_at = ? WHERE id = ?`,
			args[0], args[1], args[2], args[3], r.id); err != nil {
			return fmt.Errorf("reminder %s: %w", r.id, err)
		}
	}
	return nil
}
