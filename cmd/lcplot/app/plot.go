package app

import (
	"fmt"

	"github.com/sammarth-k/chandralc/internal/analysis"
	"github.com/sammarth-k/chandralc/internal/lightcurve"
)

// plotData is a prepared XY series ready for rendering. X and Y are
// parallel slices; LogX asks the renderer for a logarithmic horizontal
// axis (used by the periodogram).
type plotData struct {
	Title  string
	XLabel string
	YLabel string
	X      []float64
	Y      []float64
	LogX   bool
}

// buildPlot derives the requested series from the observation.
func buildPlot(obs *lightcurve.Observation, config *Config) (*plotData, error) {
	switch config.Kind {
	case PlotLightcurve:
		return buildLightcurve(obs, config)
	case PlotCumulative:
		return buildCumulative(obs)
	case PlotPSD:
		return buildPSD(obs, config)
	default:
		return nil, fmt.Errorf("unknown plot kind: %s", config.Kind)
	}
}

func buildLightcurve(obs *lightcurve.Observation, config *Config) (*plotData, error) {
	series, err := analysis.Bin(obs, config.BinWidth)
	if err != nil {
		return nil, fmt.Errorf("binning observation: %w", err)
	}

	data := &plotData{
		Title:  fmt.Sprintf("Lightcurve, ObsID %d", obs.Meta().ObsID),
		XLabel: "Time (s)",
		X:      make([]float64, series.Len()),
		Y:      make([]float64, series.Len()),
	}
	for i, bin := range series.Bins {
		data.X[i] = bin.Start
		switch config.YAxis {
		case AxisCounts:
			data.Y[i] = float64(bin.NetCounts)
		default:
			data.Y[i] = bin.Rate
		}
	}
	if config.YAxis == AxisCounts {
		data.YLabel = fmt.Sprintf("Counts per %g s bin", config.BinWidth)
	} else {
		data.YLabel = "Count rate (counts/s)"
	}
	return data, nil
}

func buildCumulative(obs *lightcurve.Observation) (*plotData, error) {
	samples := obs.Samples()
	counts := analysis.Cumulative(obs)

	data := &plotData{
		Title:  fmt.Sprintf("Cumulative counts, ObsID %d", obs.Meta().ObsID),
		XLabel: "Time (s)",
		YLabel: "Cumulative counts",
		X:      make([]float64, len(samples)),
		Y:      make([]float64, len(counts)),
	}
	for i := range samples {
		data.X[i] = samples[i].Time
		data.Y[i] = float64(counts[i])
	}
	return data, nil
}

func buildPSD(obs *lightcurve.Observation, config *Config) (*plotData, error) {
	series, err := analysis.Bin(obs, config.BinWidth)
	if err != nil {
		return nil, fmt.Errorf("binning observation: %w", err)
	}

	result, err := analysis.PSD(series, analysis.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("estimating power spectrum: %w", err)
	}

	data := &plotData{
		Title:  fmt.Sprintf("Power spectral density, ObsID %d", obs.Meta().ObsID),
		XLabel: "Frequency (Hz)",
		YLabel: "Power ((counts/s)²/Hz)",
		X:      result.Frequencies,
		Y:      result.Power,
		LogX:   true,
	}
	if result.Dominant != nil {
		data.Title = fmt.Sprintf("%s, dominant period %.1f s", data.Title, result.Dominant.Period)
	}
	return data, nil
}
