package analysis

import (
	"math"
	"sort"
)

const (
	// EventFlare marks a transient excursion above the baseline rate.
	EventFlare EventType = "flare"

	// EventEclipse marks a depression below the baseline rate.
	EventEclipse EventType = "eclipse"
)

// EventType classifies a detected event.
type EventType string

// Event is a contiguous interval of bins whose rate deviates from the
// baseline by more than the configured threshold.
type Event struct {
	Type         EventType
	Start        float64 // Interval start time in seconds
	End          float64 // Interval end time in seconds
	PeakTime     float64 // Start time of the peak (flare) or trough (eclipse) bin
	PeakRate     float64 // Rate at the peak or trough bin
	Baseline     float64 // Baseline rate the amplitude is measured against
	Amplitude    float64 // |PeakRate - Baseline|
	Significance float64 // Amplitude in units of the baseline dispersion
	FirstBin     int     // Index of the first bin of the run
	LastBin      int     // Index of the last bin of the run, inclusive
}

// DetectEvents scans a binned series for flares and eclipses.
//
// The baseline rate and its dispersion are estimated with the configured
// statistic and iteratively refit with out-of-threshold bins masked, so
// that events do not inflate their own detection threshold. A flare is a
// maximal run of bins above baseline + FlareSigma*dispersion; an eclipse
// is the mirror below baseline - EclipseSigma*dispersion. Runs separated
// by fewer than GapTolerance bins merge into one event, and runs shorter
// than MinRun bins are dropped. Flares are processed first and their bins
// are excluded from eclipse detection.
//
// A perfectly flat series (zero dispersion) or a series shorter than
// MinRun yields no events and no error. A trailing partial bin is excluded
// from the scan: its duration-corrected rate is too noisy to threshold.
func DetectEvents(series *BinnedSeries, cfg Config) []Event {
	scanned := series.TruncatePartial()
	rates := scanned.Rates()
	if len(rates) < cfg.MinRun {
		return nil
	}

	center, dispersion := refitBaseline(rates, cfg)
	if dispersion == 0 || math.IsNaN(center) {
		return nil
	}

	flareMin := center + cfg.FlareSigma*dispersion
	eclipseMax := center - cfg.EclipseSigma*dispersion

	claimed := make([]bool, len(rates))

	var events []Event
	flares := findRuns(rates, claimed, func(r float64) bool { return r > flareMin }, cfg)
	for _, run := range flares {
		for i := run[0]; i <= run[1]; i++ {
			claimed[i] = true
		}
		events = append(events, makeEvent(EventFlare, scanned, run, center, dispersion))
	}

	eclipses := findRuns(rates, claimed, func(r float64) bool { return r < eclipseMax }, cfg)
	for _, run := range eclipses {
		events = append(events, makeEvent(EventEclipse, scanned, run, center, dispersion))
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Start < events[j].Start })
	return events
}

// refitBaseline estimates the baseline and dispersion, then re-estimates
// with deviant bins masked until the masked set stops changing or the
// iteration cap is reached.
//
// Two degenerate inputs need care. A heavily repeated rate collapses the
// MAD to zero even when genuine excursions exist, so a zero MAD over a
// non-constant series falls back to mean/std. And once masking leaves a
// perfectly flat remainder, the refit keeps that center but retains the
// last resolvable dispersion as the threshold scale.
func refitBaseline(rates []float64, cfg Config) (center, dispersion float64) {
	stat := cfg.BaselineStat
	center, dispersion = baseline(rates, stat)
	if dispersion == 0 && stat == BaselineMedianMAD && !allEqual(rates) {
		stat = BaselineMeanStd
		center, dispersion = baseline(rates, stat)
	}

	kept := rates
	for iter := 0; iter < cfg.BaselineIter && dispersion > 0; iter++ {
		lo := center - cfg.EclipseSigma*dispersion
		hi := center + cfg.FlareSigma*dispersion

		next := make([]float64, 0, len(kept))
		for _, r := range kept {
			if r >= lo && r <= hi {
				next = append(next, r)
			}
		}
		if len(next) == len(kept) || len(next) == 0 {
			break
		}

		c, d := baseline(next, stat)
		if d == 0 {
			center = c
			break
		}
		kept = next
		center, dispersion = c, d
	}
	return center, dispersion
}

// findRuns returns [first, last] bin index pairs for maximal runs of
// unclaimed bins matching the predicate, after gap merging and minimum
// length filtering. Claimed bins never join a run and never bridge a gap.
func findRuns(rates []float64, claimed []bool, match func(float64) bool, cfg Config) [][2]int {
	var raw [][2]int
	start := -1
	for i, r := range rates {
		if !claimed[i] && match(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			raw = append(raw, [2]int{start, i - 1})
			start = -1
		}
	}
	if start >= 0 {
		raw = append(raw, [2]int{start, len(rates) - 1})
	}

	// Merge runs separated by fewer than GapTolerance bins, unless a
	// claimed bin sits in the gap.
	var merged [][2]int
	for _, run := range raw {
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			gap := run[0] - last[1] - 1
			if gap < cfg.GapTolerance && !anyClaimed(claimed, last[1]+1, run[0]-1) {
				last[1] = run[1]
				continue
			}
		}
		merged = append(merged, run)
	}

	runs := merged[:0]
	for _, run := range merged {
		if run[1]-run[0]+1 >= cfg.MinRun {
			runs = append(runs, run)
		}
	}
	return runs
}

func anyClaimed(claimed []bool, from, to int) bool {
	for i := from; i <= to; i++ {
		if claimed[i] {
			return true
		}
	}
	return false
}

func makeEvent(kind EventType, series *BinnedSeries, run [2]int, center, dispersion float64) Event {
	bins := series.Bins

	peak := run[0]
	for i := run[0] + 1; i <= run[1]; i++ {
		if kind == EventFlare && bins[i].Rate > bins[peak].Rate {
			peak = i
		}
		if kind == EventEclipse && bins[i].Rate < bins[peak].Rate {
			peak = i
		}
	}

	amplitude := math.Abs(bins[peak].Rate - center)
	return Event{
		Type:         kind,
		Start:        bins[run[0]].Start,
		End:          bins[run[1]].Start + series.BinWidth,
		PeakTime:     bins[peak].Start,
		PeakRate:     bins[peak].Rate,
		Baseline:     center,
		Amplitude:    amplitude,
		Significance: amplitude / dispersion,
		FirstBin:     run[0],
		LastBin:      run[1],
	}
}
