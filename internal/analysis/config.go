// Package analysis implements the lightcurve analysis engine: fixed-width
// binning, aggregate statistics, periodogram-based periodicity estimation
// and flare/eclipse detection. Every operation is a pure function of its
// inputs; results are fresh values and no state is shared between calls.
package analysis

const (
	// BaselineMedianMAD estimates the baseline with the median and its
	// dispersion with the scaled median absolute deviation. Robust against
	// contamination by the events being detected.
	BaselineMedianMAD BaselineStat = "median-mad"

	// BaselineMeanStd estimates the baseline with the arithmetic mean and
	// its dispersion with the sample standard deviation.
	BaselineMeanStd BaselineStat = "mean-std"
)

// BaselineStat selects the statistic used for baselines and dispersions in
// both event detection and the PSD peak significance test.
type BaselineStat string

// Config holds the tunable analysis parameters. It is passed by value into
// each operation; the zero value is not usable, start from DefaultConfig.
type Config struct {
	FlareSigma   float64      // Flare threshold in dispersions above baseline
	EclipseSigma float64      // Eclipse threshold in dispersions below baseline
	MinRun       int          // Minimum event length in consecutive bins
	GapTolerance int          // Runs separated by fewer bins than this merge
	BaselineIter int          // Max iterations of the robust baseline refit
	BaselineStat BaselineStat // Statistic for baselines and dispersions
	PSDSigma     float64      // Spectral peak significance in dispersions
	MinPSDBins   int          // Minimum series length for a periodogram
	MaxPSDBins   int          // Segment length cap for the direct transform
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		FlareSigma:   3.0,
		EclipseSigma: 3.0,
		MinRun:       2,
		GapTolerance: 2,
		BaselineIter: 5,
		BaselineStat: BaselineMedianMAD,
		PSDSigma:     3.0,
		MinPSDBins:   8,
		MaxPSDBins:   8192,
	}
}
