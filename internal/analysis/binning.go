package analysis

import (
	"fmt"

	"github.com/sammarth-k/chandralc/internal/lightcurve"
)

// TimeBin is a single fixed-width aggregation interval of an observation.
type TimeBin struct {
	Start     float64 // Bin start time, seconds since observation start
	NetCounts int64   // Sum of sample counts falling inside the bin
	Rate      float64 // Counts per second over the bin's actual duration
	Samples   int     // Number of samples contributing to the bin
	Partial   bool    // True for a trailing bin narrower than the nominal width
}

// BinnedSeries is an observation aggregated into contiguous half-open bins
// [start, start+width). All bins share the nominal width except possibly the
// final partial bin, which is flagged so consumers can exclude it from rate
// normalization. A BinnedSeries is derived fresh on every Bin call and never
// mutated in place.
type BinnedSeries struct {
	Bins     []TimeBin
	BinWidth float64 // Nominal bin width in seconds
	ObsID    int64   // Observation this series was derived from
}

// Bin partitions the observation's time span into fixed-width bins anchored
// at the first sample's timestamp and accumulates counts per bin. The final
// bin's rate is normalized by its actual duration rather than the nominal
// width. Conservation holds exactly: the per-bin net counts sum to the
// observation's total counts.
func Bin(obs *lightcurve.Observation, width float64) (*BinnedSeries, error) {
	if width <= 0 {
		return nil, fmt.Errorf("%w: %g seconds", lightcurve.ErrInvalidBinWidth, width)
	}

	start, end := obs.TimeSpan()
	span := end - start

	numBins := int(span/width) + 1
	bins := make([]TimeBin, numBins)
	for i := range bins {
		bins[i].Start = start + float64(i)*width
	}

	for _, s := range obs.Samples() {
		i := int((s.Time - start) / width)
		if i >= numBins { // guards float rounding at the far edge
			i = numBins - 1
		}
		bins[i].NetCounts += s.Counts
		bins[i].Samples++
	}

	for i := range bins {
		duration := width
		if i == numBins-1 {
			if actual := end - bins[i].Start; actual < width {
				bins[i].Partial = true
				duration = actual
			}
		}
		if duration > 0 {
			bins[i].Rate = float64(bins[i].NetCounts) / duration
		}
	}

	return &BinnedSeries{
		Bins:     bins,
		BinWidth: width,
		ObsID:    obs.Meta().ObsID,
	}, nil
}

// Len returns the number of bins.
func (s *BinnedSeries) Len() int { return len(s.Bins) }

// Rates returns the count-rate view of the series.
func (s *BinnedSeries) Rates() []float64 {
	rates := make([]float64, len(s.Bins))
	for i, b := range s.Bins {
		rates[i] = b.Rate
	}
	return rates
}

// NetCounts returns the net-count view of the series.
func (s *BinnedSeries) NetCounts() []int64 {
	counts := make([]int64, len(s.Bins))
	for i, b := range s.Bins {
		counts[i] = b.NetCounts
	}
	return counts
}

// TotalCounts returns the sum of net counts across all bins.
func (s *BinnedSeries) TotalCounts() int64 {
	var total int64
	for _, b := range s.Bins {
		total += b.NetCounts
	}
	return total
}

// HasPartial reports whether the series ends in a flagged partial bin.
func (s *BinnedSeries) HasPartial() bool {
	return len(s.Bins) > 0 && s.Bins[len(s.Bins)-1].Partial
}

// TruncatePartial returns the series without its trailing partial bin, or
// the receiver unchanged if there is none. The returned series shares no
// bin storage with the receiver.
func (s *BinnedSeries) TruncatePartial() *BinnedSeries {
	n := len(s.Bins)
	if n > 0 && s.Bins[n-1].Partial {
		n--
	}
	bins := make([]TimeBin, n)
	copy(bins, s.Bins[:n])
	return &BinnedSeries{Bins: bins, BinWidth: s.BinWidth, ObsID: s.ObsID}
}
