package app

import (
	"context"
	"fmt"
	"log/slog"

	"go-shop-api/internal/config"
	"go-shop-api/internal/database"
	"go-shop-api/internal/repository"
)

// Migrate applies the embedded schema and exits.
func Migrate(ctx context.Context, cfg *config.Config) error {
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure database schema: %w", err)
	}

	slog.Info("schema up to date")
	return nil
}

// Seed loads the sample catalog into an empty products table.
func Seed(ctx context.Context, cfg *config.Config) error {
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure database schema: %w", err)
	}

	inserted, err := repository.NewProductRepository(db.Pool).Seed(ctx, database.SampleCatalog())
	if err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	if inserted == 0 {
		slog.Info("products table already populated, nothing seeded")
		return nil
	}
	slog.Info("sample catalog seeded", "products", inserted)
	return nil
}
