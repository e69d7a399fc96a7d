package database

import (
	"context"
	"database/sql"
	"fmt"
)

var schemas = map[Dialect][]string{
	Postgres: {
		`CREATE TABLE IF NOT EXISTS todos (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			title VARCHAR(200) NOT NULL CHECK (btrim(title) <> ''),
			completed BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_todos_user_completed ON todos (user_id, completed)`,
	},
	SQLite: {
		`CREATE TABLE IF NOT EXISTS todos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			title TEXT NOT NULL CHECK (length(trim(title)) > 0 AND length(title) <= 200),
			completed BOOLEAN NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_todos_user_completed ON todos (user_id, completed)`,
	},
}

// Migrate creates the schema if it does not exist. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	statements, ok := schemas[dialect]
	if !ok {
		return fmt.Errorf("no schema for dialect %q", dialect)
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// ResetSequence moves the id generator past the largest stored id after rows
// were inserted with explicit ids. SQLite's AUTOINCREMENT tracks this itself.
func ResetSequence(ctx context.Context, tx *sql.Tx, dialect Dialect) error {
	if dialect != Postgres {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		SELECT setval(pg_get_serial_sequence('todos', 'id'), COALESCE((SELECT MAX(id) FROM todos), 0) + 1, false)
	`)
	return err
}
