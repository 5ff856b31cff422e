package database

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
)

//go:embed migrations/001_session_tokens.up.sql
var sessionTokensSQL string

// EnsureSchema creates the session_tokens table when it is missing. The SQL
// is idempotent.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if db == nil || db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	exists, err := db.hasTable(ctx, "session_tokens")
	if err != nil {
		return fmt.Errorf("check session_tokens table: %w", err)
	}

	if exists {
		slog.Debug("token schema present")
		return nil
	}

	slog.Info("applying token schema migration (001)")
	if _, err := db.Pool.Exec(ctx, sessionTokensSQL); err != nil {
		return fmt.Errorf("apply session tokens migration: %w", err)
	}

	return nil
}

func (db *DB) hasTable(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema()
			  AND table_name = $1
		)
	`, name).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}
