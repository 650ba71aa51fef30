package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"

	"github.com/sammarth-k/chandralc/internal/analysis"
	"github.com/sammarth-k/chandralc/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("catalog database '%s' does not exist: %w", config.DBPath, err)
	}

	catalog := storage.NewCatalog(config.DBPath)
	defer catalog.Close()

	obs, err := catalog.Observation(ctx, config.ObsID)
	if err != nil {
		return fmt.Errorf("loading observation %d: %w", config.ObsID, err)
	}

	summary, err := analysis.Summarize(obs)
	if err != nil {
		return fmt.Errorf("summarizing observation %d: %w", config.ObsID, err)
	}

	logger.Info("loaded observation",
		slog.Int64("obsid", summary.ObsID),
		slog.String("galaxy", summary.Galaxy),
		slog.Int64("counts", summary.TotalCounts),
		slog.Float64("durationKs", summary.DurationKs),
	)

	data, err := buildPlot(obs, config)
	if err != nil {
		return err
	}

	renderer, err := NewRenderer(RenderConfig{FontPath: config.FontPath})
	if err != nil {
		return fmt.Errorf("creating plot renderer: %w", err)
	}
	defer renderer.Close()

	logger.Info("rendering plot",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("kind", string(config.Kind)),
		))

	img, err := renderer.Render(data, summary)
	if err != nil {
		return fmt.Errorf("rendering plot: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	switch config.Format {
	case ImagePNG:
		err = png.Encode(out, img)

	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	}
	return err
}
