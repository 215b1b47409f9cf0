package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/attarco/attar-backend/pkg/config"
	"github.com/attarco/attar-backend/pkg/db"
	"github.com/attarco/attar-backend/pkg/logger"
	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// Run executes a goose command against the provided connection.
func Run(ctx context.Context, sqlDB *sql.DB, dir string, command string, args ...string) error {
	if sqlDB == nil {
		return fmt.Errorf("db is required")
	}
	if dir == "" {
		return fmt.Errorf("dir is required")
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, sqlDB, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MaybeRunDev applies pending migrations when the auto-migrate flag is on.
// Intended for dev environments only; production runs cmd/migrate explicitly.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg == nil || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if cfg.App.IsProd() {
		return fmt.Errorf("auto-migrate is not allowed in prod")
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("get sql handle: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "applying pending migrations (auto-migrate)")
	}
	return Run(ctx, sqlDB, DefaultDir, "up")
}
