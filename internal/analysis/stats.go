package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/sammarth-k/chandralc/internal/lightcurve"
)

// Summary bundles the scalar statistics of an observation for reporting.
type Summary struct {
	ObsID       int64
	Galaxy      string
	RA, Dec     float64
	TotalCounts int64
	DurationSec float64
	DurationKs  float64
	RateSec     float64 // Mean count rate, counts per second
	RateKs      float64 // Mean count rate, counts per kilosecond
}

// Summarize computes the scalar statistics bundle for an observation.
// A zero-duration (single sample) observation yields
// ErrDegenerateObservation since its mean rate is undefined.
func Summarize(obs *lightcurve.Observation) (Summary, error) {
	rateSec, err := MeanRate(obs)
	if err != nil {
		return Summary{}, err
	}

	meta := obs.Meta()
	duration := obs.Duration()
	return Summary{
		ObsID:       meta.ObsID,
		Galaxy:      meta.Galaxy,
		RA:          meta.RA,
		Dec:         meta.Dec,
		TotalCounts: obs.TotalCounts(),
		DurationSec: duration,
		DurationKs:  duration / 1000,
		RateSec:     rateSec,
		RateKs:      rateSec * 1000,
	}, nil
}

// MeanRate returns the mean count rate in counts per second.
func MeanRate(obs *lightcurve.Observation) (float64, error) {
	duration := obs.Duration()
	if duration == 0 {
		return 0, fmt.Errorf("%w: zero duration, mean rate undefined", lightcurve.ErrDegenerateObservation)
	}
	return float64(obs.TotalCounts()) / duration, nil
}

// Cumulative returns the running total of counts per sample, aligned with
// the observation's sample sequence.
func Cumulative(obs *lightcurve.Observation) []int64 {
	samples := obs.Samples()
	cumulative := make([]int64, len(samples))
	var total int64
	for i, s := range samples {
		total += s.Counts
		cumulative[i] = total
	}
	return cumulative
}

// RunningAverage computes a moving mean of the count-rate series over the
// given window of bins. The result has len(bins)-window+1 points, the i-th
// covering bins [i, i+window). Window must be at least 1 and at most the
// number of bins.
func RunningAverage(series *BinnedSeries, window int) ([]float64, error) {
	if window < 1 || window > len(series.Bins) {
		return nil, fmt.Errorf("%w: window %d for %d bins", lightcurve.ErrInvalidWindow, window, len(series.Bins))
	}

	rates := series.Rates()
	out := make([]float64, len(rates)-window+1)

	var sum float64
	for i, r := range rates {
		sum += r
		if i >= window {
			sum -= rates[i-window]
		}
		if i >= window-1 {
			out[i-window+1] = sum / float64(window)
		}
	}
	return out, nil
}

// median returns the middle value of the data. The input slice is not
// modified. Empty input yields NaN.
func median(data []float64) float64 {
	n := len(data)
	if n == 0 {
		return math.NaN()
	}
	sorted := make([]float64, n)
	copy(sorted, data)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func allEqual(data []float64) bool {
	if len(data) == 0 {
		return true
	}
	for _, v := range data[1:] {
		if v != data[0] {
			return false
		}
	}
	return true
}

// madNormalization scales the median absolute deviation to estimate the
// standard deviation of normally distributed data.
const madNormalization = 1.4826

// baseline estimates the central value and dispersion of the data using the
// configured statistic. For MedianMAD the dispersion is 1.4826*MAD so that
// sigma thresholds are comparable between the two statistics.
func baseline(data []float64, stat BaselineStat) (center, dispersion float64) {
	if len(data) == 0 {
		return math.NaN(), 0
	}

	if stat == BaselineMeanStd {
		var sum float64
		for _, v := range data {
			sum += v
		}
		mean := sum / float64(len(data))

		var sq float64
		for _, v := range data {
			d := v - mean
			sq += d * d
		}
		if len(data) < 2 {
			return mean, 0
		}
		return mean, math.Sqrt(sq / float64(len(data)-1))
	}

	center = median(data)
	deviations := make([]float64, len(data))
	for i, v := range data {
		deviations[i] = math.Abs(v - center)
	}
	return center, madNormalization * median(deviations)
}
