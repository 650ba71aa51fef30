package analysis

import (
	"fmt"
	"math"

	"github.com/sammarth-k/chandralc/internal/lightcurve"
)

// Peak is a spectral peak that cleared the significance threshold.
type Peak struct {
	Frequency    float64 // Hz
	Period       float64 // Seconds, 1/Frequency
	Power        float64
	Significance float64 // (Power - background) / background dispersion
}

// PSDResult is a one-sided power spectral density estimate over positive
// frequencies up to the Nyquist limit 1/(2*binWidth). Dominant is the
// strongest peak exceeding the configured significance, or nil when no peak
// clears it.
type PSDResult struct {
	Frequencies []float64 // Hz, ascending
	Power       []float64
	BinWidth    float64 // Seconds per bin of the source series

	Dominant *Peak

	// TruncatedPartial reports that a trailing partial bin was dropped
	// before estimation; callers should surface a warning rather than let
	// the uneven bin silently bias the estimate.
	TruncatedPartial bool

	// Segments is the number of equal-length segments whose periodograms
	// were averaged. 1 means a plain periodogram over the whole series.
	Segments int

	// DroppedBins counts trailing bins that did not fill the last segment
	// and were excluded from the average. Zero when the series divides
	// evenly. Callers should surface it the same way as TruncatedPartial.
	DroppedBins int
}

// PSD estimates the power spectral density of the count-rate series using a
// one-sided periodogram with density normalization P_k = 2*dt*|X_k|^2/N
// (DC excluded). Series with a trailing partial bin are truncated first and
// the result is flagged. Series longer than cfg.MaxPSDBins are split into
// equal contiguous segments whose periodograms are averaged, bounding the
// cost of the direct transform on very long exposures; trailing bins that
// do not fill the last segment are excluded and reported via DroppedBins.
// The estimate is fully deterministic.
func PSD(series *BinnedSeries, cfg Config) (*PSDResult, error) {
	truncated := series.HasPartial()
	if truncated {
		series = series.TruncatePartial()
	}

	if series.Len() < cfg.MinPSDBins {
		return nil, fmt.Errorf("%w: %d bins, periodogram needs at least %d",
			lightcurve.ErrInsufficientData, series.Len(), cfg.MinPSDBins)
	}

	rates := series.Rates()

	segments := 1
	if cfg.MaxPSDBins > 0 && len(rates) > cfg.MaxPSDBins {
		segments = (len(rates) + cfg.MaxPSDBins - 1) / cfg.MaxPSDBins
	}
	segLen := len(rates) / segments

	power := make([]float64, segLen/2)
	for s := 0; s < segments; s++ {
		segment := rates[s*segLen : (s+1)*segLen]
		accumulate(power, segment, series.BinWidth)
	}
	for k := range power {
		power[k] /= float64(segments)
	}

	freqs := make([]float64, len(power))
	resolution := 1 / (float64(segLen) * series.BinWidth)
	for k := range freqs {
		freqs[k] = float64(k+1) * resolution
	}

	result := &PSDResult{
		Frequencies:      freqs,
		Power:            power,
		BinWidth:         series.BinWidth,
		TruncatedPartial: truncated,
		Segments:         segments,
		DroppedBins:      len(rates) - segments*segLen,
	}
	result.Dominant = dominantPeak(freqs, power, cfg)
	return result, nil
}

// accumulate adds the one-sided periodogram of the segment into power,
// which has len(segment)/2 entries for frequency indexes 1..len/2. The
// mean is removed first so the DC term does not leak into low frequencies.
func accumulate(power []float64, segment []float64, dt float64) {
	n := len(segment)

	var mean float64
	for _, v := range segment {
		mean += v
	}
	mean /= float64(n)

	norm := 2 * dt / float64(n)
	for k := 1; k <= len(power); k++ {
		var re, im float64
		omega := -2 * math.Pi * float64(k) / float64(n)
		for j, v := range segment {
			angle := omega * float64(j)
			re += (v - mean) * math.Cos(angle)
			im += (v - mean) * math.Sin(angle)
		}
		power[k-1] += norm * (re*re + im*im)
	}
}

// dominantPeak finds the strongest spectral peak whose power exceeds the
// spectrum background by cfg.PSDSigma dispersions. Returns nil when the
// spectrum is flat or no peak qualifies.
func dominantPeak(freqs, power []float64, cfg Config) *Peak {
	if len(power) == 0 {
		return nil
	}

	background, dispersion := baseline(power, cfg.BaselineStat)
	if dispersion == 0 && cfg.BaselineStat == BaselineMedianMAD && !allEqual(power) {
		// A spectrum dominated by near-identical background values
		// collapses the MAD; fall back to mean/std for the peak test.
		background, dispersion = baseline(power, BaselineMeanStd)
	}
	if dispersion == 0 || math.IsNaN(background) {
		return nil
	}
	threshold := background + cfg.PSDSigma*dispersion

	best := -1
	for k, p := range power {
		if p > threshold && (best < 0 || p > power[best]) {
			best = k
		}
	}
	if best < 0 {
		return nil
	}

	return &Peak{
		Frequency:    freqs[best],
		Period:       1 / freqs[best],
		Power:        power[best],
		Significance: (power[best] - background) / dispersion,
	}
}
