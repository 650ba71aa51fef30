package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/sammarth-k/chandralc/internal/lightcurve"
)

// sineSeries builds a uniformly binned rate series carrying a single
// sinusoidal modulation with the given number of cycles over n bins.
func sineSeries(n int, dt, mean, amplitude, cycles float64) *BinnedSeries {
	bins := make([]TimeBin, n)
	for i := range bins {
		bins[i].Start = float64(i) * dt
		bins[i].Rate = mean + amplitude*math.Sin(2*math.Pi*cycles*float64(i)/float64(n))
	}
	return &BinnedSeries{Bins: bins, BinWidth: dt}
}

func TestPSD_FindsDominantPeriod(t *testing.T) {
	// 8 cycles over 128 bins of 1s: frequency 0.0625 Hz, period 16s.
	series := sineSeries(128, 1, 5, 2, 8)

	result, err := PSD(series, DefaultConfig())
	if err != nil {
		t.Fatalf("PSD failed: %v", err)
	}

	if result.Dominant == nil {
		t.Fatal("expected a dominant peak")
	}
	if math.Abs(result.Dominant.Frequency-0.0625) > 1e-9 {
		t.Errorf("expected dominant frequency 0.0625 Hz, got %v", result.Dominant.Frequency)
	}
	if math.Abs(result.Dominant.Period-16) > 1e-6 {
		t.Errorf("expected dominant period 16s, got %v", result.Dominant.Period)
	}
	if result.Dominant.Significance <= DefaultConfig().PSDSigma {
		t.Errorf("dominant peak significance %v does not clear the threshold", result.Dominant.Significance)
	}
	if result.Segments != 1 {
		t.Errorf("expected a single segment, got %d", result.Segments)
	}
}

func TestPSD_FrequencyAxis(t *testing.T) {
	series := sineSeries(64, 2, 1, 0.5, 4)

	result, err := PSD(series, DefaultConfig())
	if err != nil {
		t.Fatalf("PSD failed: %v", err)
	}

	if len(result.Frequencies) != 32 {
		t.Fatalf("expected 32 positive frequencies, got %d", len(result.Frequencies))
	}
	// Resolution 1/(N*dt) = 1/128 Hz, Nyquist 1/(2*dt) = 0.25 Hz.
	if math.Abs(result.Frequencies[0]-1.0/128) > 1e-12 {
		t.Errorf("expected first frequency 1/128 Hz, got %v", result.Frequencies[0])
	}
	last := result.Frequencies[len(result.Frequencies)-1]
	if math.Abs(last-0.25) > 1e-12 {
		t.Errorf("expected Nyquist limit 0.25 Hz, got %v", last)
	}
}

func TestPSD_Deterministic(t *testing.T) {
	series := sineSeries(256, 0.5, 3, 1, 10)
	cfg := DefaultConfig()

	first, err := PSD(series, cfg)
	if err != nil {
		t.Fatalf("PSD failed: %v", err)
	}
	second, err := PSD(series, cfg)
	if err != nil {
		t.Fatalf("PSD failed: %v", err)
	}

	for k := range first.Power {
		a, b := first.Power[k], second.Power[k]
		if a == b {
			continue
		}
		if math.Abs(a-b) > 1e-9*math.Max(math.Abs(a), math.Abs(b)) {
			t.Fatalf("power[%d] differs between runs: %v vs %v", k, a, b)
		}
	}
}

func TestPSD_FlatSeriesHasNoPeak(t *testing.T) {
	series := sineSeries(64, 1, 2, 0, 0) // constant rate

	result, err := PSD(series, DefaultConfig())
	if err != nil {
		t.Fatalf("PSD failed: %v", err)
	}
	if result.Dominant != nil {
		t.Errorf("flat series produced a dominant peak at %v Hz", result.Dominant.Frequency)
	}
}

func TestPSD_InsufficientData(t *testing.T) {
	series := sineSeries(4, 1, 1, 0.5, 1)
	if _, err := PSD(series, DefaultConfig()); !errors.Is(err, lightcurve.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestPSD_TruncatesPartialBin(t *testing.T) {
	series := sineSeries(65, 1, 5, 2, 8)
	series.Bins[64].Partial = true

	result, err := PSD(series, DefaultConfig())
	if err != nil {
		t.Fatalf("PSD failed: %v", err)
	}
	if !result.TruncatedPartial {
		t.Error("result does not flag the truncated partial bin")
	}
	if len(result.Frequencies) != 32 {
		t.Errorf("expected 32 frequencies from the 64 remaining bins, got %d", len(result.Frequencies))
	}
}

func TestPSD_SegmentsLongSeries(t *testing.T) {
	series := sineSeries(1000, 1, 5, 2, 125)
	cfg := DefaultConfig()
	cfg.MaxPSDBins = 250

	result, err := PSD(series, cfg)
	if err != nil {
		t.Fatalf("PSD failed: %v", err)
	}
	if result.Segments != 4 {
		t.Errorf("expected 4 averaged segments, got %d", result.Segments)
	}
	if len(result.Power) != 125 {
		t.Errorf("expected 125 frequencies from 250-bin segments, got %d", len(result.Power))
	}
	if result.DroppedBins != 0 {
		t.Errorf("an evenly dividing series dropped %d bins", result.DroppedBins)
	}
	// The signal frequency falls between segment bins, so the peak
	// spreads; the averaged estimate must still be finite everywhere.
	for k, p := range result.Power {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			t.Fatalf("power[%d] is not finite: %v", k, p)
		}
	}
}

func TestPSD_ReportsSegmentRemainder(t *testing.T) {
	series := sineSeries(1002, 1, 5, 2, 125)
	cfg := DefaultConfig()
	cfg.MaxPSDBins = 250

	result, err := PSD(series, cfg)
	if err != nil {
		t.Fatalf("PSD failed: %v", err)
	}
	if result.Segments != 5 {
		t.Errorf("expected 5 segments for 1002 bins, got %d", result.Segments)
	}
	if len(result.Power) != 100 {
		t.Errorf("expected 100 frequencies from 200-bin segments, got %d", len(result.Power))
	}
	if result.DroppedBins != 2 {
		t.Errorf("expected 2 trailing bins excluded from the average, got %d", result.DroppedBins)
	}
}
