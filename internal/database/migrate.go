package database

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
)

//go:embed migrations/001_initial.up.sql
var initialMigrationSQL string

//go:embed migrations/002_order_indexes.up.sql
var orderIndexesSQL string

var requiredTables = []string{
	"users",
	"profiles",
	"products",
	"orders",
	"order_items",
	"audit_entries",
}

func (db *DB) EnsureSchema(ctx context.Context) error {
	if db == nil || db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	return ensureSchema(ctx, db.Pool)
}

func ensureSchema(ctx context.Context, conn DBTX) error {
	exists, err := hasAllRequiredTables(ctx, conn)
	if err != nil {
		return fmt.Errorf("check existing tables: %w", err)
	}

	if !exists {
		slog.Info("database schema missing tables; applying initial migration")
		if _, err := conn.Exec(ctx, initialMigrationSQL); err != nil {
			return fmt.Errorf("apply initial migration: %w", err)
		}

		exists, err = hasAllRequiredTables(ctx, conn)
		if err != nil {
			return fmt.Errorf("re-check tables after migration: %w", err)
		}

		if !exists {
			return fmt.Errorf("schema initialization incomplete: required tables are still missing")
		}
	}

	// 002 uses IF NOT EXISTS throughout and is safe to re-run.
	if _, err := conn.Exec(ctx, orderIndexesSQL); err != nil {
		return fmt.Errorf("apply order indexes migration: %w", err)
	}

	slog.Info("database schema ensured")
	return nil
}

func hasAllRequiredTables(ctx context.Context, conn DBTX) (bool, error) {
	var count int
	err := conn.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_name = ANY($1)
	`, requiredTables).Scan(&count)
	if err != nil {
		return false, err
	}

	return count == len(requiredTables), nil
}
