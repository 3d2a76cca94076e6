package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// MaybeRunDev migrates, and optionally seeds the sample catalog, when running
// in dev with the matching feature flags on.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	runner, err := NewRunner(sqlDB, Embedded())
	if err != nil {
		return err
	}
	applied, err := runner.Up(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", applied), "migrate.dev_up")

	if !cfg.FeatureFlags.SeedCatalog {
		return nil
	}
	inserted, err := SeedCatalog(ctx, client.DB())
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	logg.Info(logg.WithField(ctx, "inserted", inserted), "migrate.dev_seed")
	return nil
}
