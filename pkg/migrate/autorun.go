package migrate

import (
	"context"
	"fmt"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/config"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/db"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on boot when running in dev with
// CARGOPARTS_AUTO_MIGRATE set. Every other environment migrates through
// cmd/migrate so schema changes stay an explicit deploy step.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.App.AutoMigrate {
		return nil
	}
	if err := ValidateEmbedded(); err != nil {
		return fmt.Errorf("embedded migrations invalid: %w", err)
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"service": cfg.Service.Kind,
	})
	logg.Info(ctx, "migrate.autorun.start")

	migrator, err := New(sqlDB, DefaultDir, nil)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx, "up"); err != nil {
		return err
	}

	logg.Info(ctx, "migrate.autorun.complete")
	return nil
}
