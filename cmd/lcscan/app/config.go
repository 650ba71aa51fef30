package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sammarth-k/chandralc/internal/analysis"
)

const (
	defaultBinWidth = 500.0 // seconds
	defaultWorkers  = 4
)

// Config represents the main scanner configuration.
type Config struct {
	Settings Settings       `yaml:"settings"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Scan     ScanConfig     `yaml:"scan"`
}

// Settings represents global application settings.
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// CatalogConfig points the scanner at the archive catalog database.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// AnalysisConfig carries the engine tuning knobs. Unset knobs fall back to
// the engine defaults. MinRun and GapTolerance are pointers because zero is
// a meaningful setting for both (single-bin events, no run merging).
type AnalysisConfig struct {
	BinWidth     float64 `yaml:"binWidth"`
	FlareSigma   float64 `yaml:"flareSigma"`
	EclipseSigma float64 `yaml:"eclipseSigma"`
	MinRun       *int    `yaml:"minRun"`
	GapTolerance *int    `yaml:"gapTolerance"`
	BaselineStat string  `yaml:"baselineStat"`
	PSDSigma     float64 `yaml:"psdSigma"`
}

// ConeConfig selects observations within a radius of a sky position.
type ConeConfig struct {
	RA     float64 `yaml:"ra"`
	Dec    float64 `yaml:"dec"`
	Radius float64 `yaml:"radius"`
}

// ScanConfig selects which observations to analyze and what to do with
// the results.
type ScanConfig struct {
	Workers     int         `yaml:"workers"`
	Galaxy      string      `yaml:"galaxy"`
	Cone        *ConeConfig `yaml:"cone"`
	PSD         bool        `yaml:"psd"`
	StoreEvents bool        `yaml:"storeEvents"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	config := Config{
		Analysis: AnalysisConfig{BinWidth: defaultBinWidth},
		Scan:     ScanConfig{Workers: defaultWorkers, StoreEvents: true},
	}
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if config.Catalog.Path == "" {
		return nil, errors.New("catalog path is required")
	}
	if config.Analysis.BinWidth <= 0 {
		return nil, fmt.Errorf("invalid bin width %g", config.Analysis.BinWidth)
	}
	if config.Scan.Workers < 1 {
		return nil, fmt.Errorf("invalid worker count %d", config.Scan.Workers)
	}
	if config.Analysis.MinRun != nil && *config.Analysis.MinRun < 0 {
		return nil, fmt.Errorf("invalid minimum run %d", *config.Analysis.MinRun)
	}
	if config.Analysis.GapTolerance != nil && *config.Analysis.GapTolerance < 0 {
		return nil, fmt.Errorf("invalid gap tolerance %d", *config.Analysis.GapTolerance)
	}
	if config.Scan.Galaxy != "" && config.Scan.Cone != nil {
		return nil, errors.New("galaxy and cone filters are mutually exclusive")
	}
	if config.Scan.Cone != nil && config.Scan.Cone.Radius <= 0 {
		return nil, fmt.Errorf("invalid cone radius %g", config.Scan.Cone.Radius)
	}

	switch config.Analysis.BaselineStat {
	case "", string(analysis.BaselineMedianMAD), string(analysis.BaselineMeanStd):
	default:
		return nil, fmt.Errorf("unknown baseline statistic '%s'", config.Analysis.BaselineStat)
	}

	return &config, nil
}

// Level parses the configured log level, defaulting to info.
func (s Settings) Level() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// EngineConfig translates the YAML knobs into an analysis configuration,
// keeping the engine defaults for anything left unset.
func (a AnalysisConfig) EngineConfig() analysis.Config {
	cfg := analysis.DefaultConfig()
	if a.FlareSigma > 0 {
		cfg.FlareSigma = a.FlareSigma
	}
	if a.EclipseSigma > 0 {
		cfg.EclipseSigma = a.EclipseSigma
	}
	if a.MinRun != nil {
		cfg.MinRun = *a.MinRun
	}
	if a.GapTolerance != nil {
		cfg.GapTolerance = *a.GapTolerance
	}
	if a.BaselineStat != "" {
		cfg.BaselineStat = analysis.BaselineStat(a.BaselineStat)
	}
	if a.PSDSigma > 0 {
		cfg.PSDSigma = a.PSDSigma
	}
	return cfg
}
