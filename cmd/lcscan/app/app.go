package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sammarth-k/chandralc/internal/lightcurve"
	"github.com/sammarth-k/chandralc/internal/storage"
)

// Run wires the catalog and scanner together and executes the scan.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.Catalog.Path); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("catalog database '%s' does not exist: %w", config.Catalog.Path, err)
	}

	catalog := storage.NewCatalog(config.Catalog.Path)
	defer catalog.Close()

	metas, err := selectObservations(ctx, catalog, config)
	if err != nil {
		return err
	}

	logger.Info("starting scan",
		slog.Int("observations", len(metas)),
		slog.Float64("binWidth", config.Analysis.BinWidth),
		slog.Int("workers", config.Scan.Workers),
	)

	return NewScanner(catalog, catalog, config, logger).Run(ctx, metas)
}

func selectObservations(ctx context.Context, repo storage.Repository, config *Config) ([]lightcurve.Metadata, error) {
	switch {
	case config.Scan.Galaxy != "":
		metas, err := repo.FindByGalaxy(ctx, config.Scan.Galaxy)
		if err != nil {
			return nil, fmt.Errorf("looking up galaxy '%s': %w", config.Scan.Galaxy, err)
		}
		return metas, nil

	case config.Scan.Cone != nil:
		cone := config.Scan.Cone
		metas, err := repo.FindByCone(ctx, cone.RA, cone.Dec, cone.Radius)
		if err != nil {
			return nil, fmt.Errorf("cone search at (%g, %g): %w", cone.RA, cone.Dec, err)
		}
		return metas, nil

	default:
		metas, err := repo.Observations(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing observations: %w", err)
		}
		return metas, nil
	}
}
