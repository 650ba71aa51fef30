package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"github.com/sammarth-k/chandralc/internal/analysis"
	"github.com/sammarth-k/chandralc/internal/lightcurve"
	"github.com/sammarth-k/chandralc/internal/storage"
)

// EventWriter persists detections; satisfied by *storage.Catalog.
type EventWriter interface {
	PutEvents(ctx context.Context, obsID int64, binWidth float64, events []analysis.Event) error
}

// Scanner runs the analysis engine over a set of cataloged observations.
// Observations are independent values, so the scan fans out across a
// bounded pool of workers with no shared state beyond the result counters.
type Scanner struct {
	repo   storage.Repository
	writer EventWriter
	logger *slog.Logger

	binWidth    float64
	engine      analysis.Config
	workers     int
	withPSD     bool
	storeEvents bool

	observations atomic.Int64
	flares       atomic.Int64
	eclipses     atomic.Int64
	failures     atomic.Int64
}

// NewScanner creates a scanner over the given repository. Writer may be nil
// when detections are not persisted.
func NewScanner(repo storage.Repository, writer EventWriter, config *Config, logger *slog.Logger) *Scanner {
	return &Scanner{
		repo:        repo,
		writer:      writer,
		logger:      logger,
		binWidth:    config.Analysis.BinWidth,
		engine:      config.Analysis.EngineConfig(),
		workers:     config.Scan.Workers,
		withPSD:     config.Scan.PSD,
		storeEvents: config.Scan.StoreEvents && writer != nil,
	}
}

// Run analyzes every observation in the list and returns once all workers
// drain or the context is canceled.
func (s *Scanner) Run(ctx context.Context, metas []lightcurve.Metadata) error {
	if len(metas) == 0 {
		return errors.New("no observations matched the scan filters")
	}

	queue := make(chan lightcurve.Metadata)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for meta := range queue {
				if err := s.analyze(ctx, meta); err != nil {
					s.failures.Add(1)
					s.logger.Error(err.Error(), slog.Int64("obsid", meta.ObsID))
				}
			}
		}()
	}

	for _, meta := range metas {
		select {
		case queue <- meta:
		case <-ctx.Done():
			close(queue)
			wg.Wait()
			return ctx.Err()
		}
	}
	close(queue)
	wg.Wait()

	s.logger.Info("scan finished",
		slog.Group("totals",
			slog.Int64("observations", s.observations.Load()),
			slog.Int64("flares", s.flares.Load()),
			slog.Int64("eclipses", s.eclipses.Load()),
			slog.Int64("failures", s.failures.Load()),
		))
	return nil
}

func (s *Scanner) analyze(ctx context.Context, meta lightcurve.Metadata) error {
	obs, err := s.repo.Observation(ctx, meta.ObsID)
	if err != nil {
		return fmt.Errorf("loading observation: %w", err)
	}

	summary, err := analysis.Summarize(obs)
	if err != nil {
		return fmt.Errorf("summarizing observation: %w", err)
	}

	series, err := analysis.Bin(obs, s.binWidth)
	if err != nil {
		return fmt.Errorf("binning at %gs: %w", s.binWidth, err)
	}

	events := analysis.DetectEvents(series, s.engine)

	var flares, eclipses int
	for _, e := range events {
		switch e.Type {
		case analysis.EventFlare:
			flares++
		case analysis.EventEclipse:
			eclipses++
		}
	}

	s.observations.Add(1)
	s.flares.Add(int64(flares))
	s.eclipses.Add(int64(eclipses))

	attrs := []any{
		slog.Int64("obsid", summary.ObsID),
		slog.String("galaxy", summary.Galaxy),
		slog.String("counts", humanize.Comma(summary.TotalCounts)),
		slog.String("duration", fmt.Sprintf("%sks", humanize.CommafWithDigits(summary.DurationKs, 2))),
		slog.String("rate", fmt.Sprintf("%s c/ks", humanize.CommafWithDigits(summary.RateKs, 2))),
		slog.Int("flares", flares),
		slog.Int("eclipses", eclipses),
	}

	if s.withPSD {
		psd, psdErr := analysis.PSD(series, s.engine)
		switch {
		case errors.Is(psdErr, lightcurve.ErrInsufficientData):
			s.logger.Debug("series too short for a periodogram", slog.Int64("obsid", summary.ObsID))

		case psdErr != nil:
			return fmt.Errorf("estimating PSD: %w", psdErr)

		default:
			if psd.TruncatedPartial {
				s.logger.Warn("dropped trailing partial bin before PSD estimation",
					slog.Int64("obsid", summary.ObsID))
			}
			if psd.DroppedBins > 0 {
				s.logger.Warn("segment averaging excluded trailing bins",
					slog.Int64("obsid", summary.ObsID),
					slog.Int("bins", psd.DroppedBins))
			}
			if psd.Dominant != nil {
				attrs = append(attrs,
					slog.String("period", fmt.Sprintf("%ss", humanize.CommafWithDigits(psd.Dominant.Period, 1))))
			}
		}
	}

	for _, e := range events {
		s.logger.Info(fmt.Sprintf("detected %s", e.Type),
			slog.Int64("obsid", summary.ObsID),
			slog.String("interval", fmt.Sprintf("%.0fs - %.0fs", e.Start, e.End)),
			slog.String("significance", fmt.Sprintf("%.1f sigma", e.Significance)),
		)
	}

	if s.storeEvents {
		if err = s.writer.PutEvents(ctx, summary.ObsID, s.binWidth, events); err != nil {
			return fmt.Errorf("storing events: %w", err)
		}
	}

	s.logger.Info("analyzed observation", attrs...)
	return nil
}
