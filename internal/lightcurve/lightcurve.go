// Package lightcurve defines the immutable observation model shared by the
// analysis engine, the archive catalog and the plotting tools.
package lightcurve

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	// ErrInvalidObservation is returned when an observation cannot be
	// constructed from the provided samples (empty input, negative counts,
	// non-finite timestamps).
	ErrInvalidObservation = errors.New("invalid observation")

	// ErrInvalidBinWidth is returned when a non-positive bin width is requested.
	ErrInvalidBinWidth = errors.New("invalid bin width")

	// ErrInvalidWindow is returned when a running-average window does not fit
	// the series it is applied to.
	ErrInvalidWindow = errors.New("invalid window")

	// ErrDegenerateObservation is returned for zero-duration or zero-dispersion
	// inputs that make the requested statistic undefined.
	ErrDegenerateObservation = errors.New("degenerate observation")

	// ErrInsufficientData is returned when a series is too short for the
	// requested operation.
	ErrInsufficientData = errors.New("insufficient data")
)

// Sample is a single time-tagged count measurement. Time is in seconds
// since the start of the observation.
type Sample struct {
	Time   float64 // Seconds since observation start
	Counts int64   // Photon counts at this timestamp, never negative
}

// Metadata describes the observation exposure and the source it targets.
type Metadata struct {
	ObsID         int64     // Observation ID assigned by the archive
	RA            float64   // Right ascension, J2000 degrees
	Dec           float64   // Declination, J2000 degrees
	Galaxy        string    // Host galaxy identifier (e.g. "M81")
	ExposureStart time.Time // Start of the exposure window
	ExposureEnd   time.Time // End of the exposure window
}

// Observation owns a time-ascending sequence of samples plus exposure
// metadata. It is immutable once constructed; analysis operations derive
// fresh values from it and never mutate the raw samples.
type Observation struct {
	meta        Metadata
	samples     []Sample
	totalCounts int64
}

// New constructs an Observation from an unordered collection of samples.
// Samples are sorted by timestamp and duplicates at the same timestamp are
// summed, not dropped. Negative counts, non-finite timestamps or an empty
// sequence yield ErrInvalidObservation.
func New(meta Metadata, samples []Sample) (*Observation, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrInvalidObservation)
	}

	ordered := make([]Sample, len(samples))
	copy(ordered, samples)

	for i, s := range ordered {
		if s.Counts < 0 {
			return nil, fmt.Errorf("%w: negative counts %d at sample %d", ErrInvalidObservation, s.Counts, i)
		}
		if math.IsNaN(s.Time) || math.IsInf(s.Time, 0) {
			return nil, fmt.Errorf("%w: non-finite timestamp %g at sample %d", ErrInvalidObservation, s.Time, i)
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Time < ordered[j].Time
	})

	// Collapse duplicate timestamps by summing their counts.
	merged := ordered[:1]
	for _, s := range ordered[1:] {
		last := &merged[len(merged)-1]
		if s.Time == last.Time {
			last.Counts += s.Counts
			continue
		}
		merged = append(merged, s)
	}

	var total int64
	for _, s := range merged {
		total += s.Counts
	}

	return &Observation{
		meta:        meta,
		samples:     merged,
		totalCounts: total,
	}, nil
}

// Meta returns the observation metadata.
func (o *Observation) Meta() Metadata { return o.meta }

// Len returns the number of distinct sample timestamps.
func (o *Observation) Len() int { return len(o.samples) }

// TotalCounts returns the sum of counts across all samples.
func (o *Observation) TotalCounts() int64 { return o.totalCounts }

// Samples returns the ordered sample sequence. The returned slice is shared
// and must be treated as read-only.
func (o *Observation) Samples() []Sample { return o.samples }

// TimeSpan returns the first and last sample timestamps in seconds.
func (o *Observation) TimeSpan() (start, end float64) {
	return o.samples[0].Time, o.samples[len(o.samples)-1].Time
}

// Duration returns the observation duration in seconds. A single-sample
// observation has zero duration; callers computing rates must handle it.
func (o *Observation) Duration() float64 {
	start, end := o.TimeSpan()
	return end - start
}
