package analysis

import (
	"math"
	"testing"

	"github.com/sammarth-k/chandralc/internal/lightcurve"
)

// syntheticObservation emits one sample every 10s over the given span with
// a background rate of 0.1 counts/s, optionally raising the rate to
// excursion counts/s over [from, to).
func syntheticObservation(t *testing.T, span, from, to, excursion float64) *lightcurve.Observation {
	t.Helper()
	var samples []lightcurve.Sample
	for ts := 0.0; ts <= span; ts += 10 {
		counts := int64(1) // 0.1 counts/s over 10s
		if excursion > 0 && ts >= from && ts < to {
			counts = int64(excursion * 10)
		}
		samples = append(samples, lightcurve.Sample{Time: ts, Counts: counts})
	}
	obs, err := lightcurve.New(lightcurve.Metadata{ObsID: 2}, samples)
	if err != nil {
		t.Fatalf("building observation: %v", err)
	}
	return obs
}

func rateSeries(rates []float64, width float64) *BinnedSeries {
	bins := make([]TimeBin, len(rates))
	for i, r := range rates {
		bins[i] = TimeBin{Start: float64(i) * width, Rate: r}
	}
	return &BinnedSeries{Bins: bins, BinWidth: width}
}

func TestDetectEvents_InjectedFlare(t *testing.T) {
	// 1000s observation, background 0.1 counts/s, excursion to 5 counts/s
	// between t=400s and t=450s, binned at 10s.
	obs := syntheticObservation(t, 1000, 400, 450, 5)
	series, err := Bin(obs, 10)
	if err != nil {
		t.Fatalf("Bin failed: %v", err)
	}

	cfg := DefaultConfig()
	events := DetectEvents(series, cfg)

	if len(events) != 1 {
		t.Fatalf("expected exactly one event, got %d: %+v", len(events), events)
	}

	flare := events[0]
	if flare.Type != EventFlare {
		t.Fatalf("expected a flare, got %s", flare.Type)
	}
	if math.Abs(flare.Start-400) > 10 {
		t.Errorf("expected start near 400s, got %v", flare.Start)
	}
	if math.Abs(flare.End-450) > 10 {
		t.Errorf("expected end near 450s, got %v", flare.End)
	}
	if flare.Significance <= cfg.FlareSigma {
		t.Errorf("significance %v does not exceed the configured threshold %v", flare.Significance, cfg.FlareSigma)
	}
	if flare.PeakRate < 4.9 {
		t.Errorf("expected peak rate near 5 counts/s, got %v", flare.PeakRate)
	}
}

func TestDetectEvents_NoExcursionNoEvents(t *testing.T) {
	obs := syntheticObservation(t, 1000, 0, 0, 0)
	series, err := Bin(obs, 10)
	if err != nil {
		t.Fatalf("Bin failed: %v", err)
	}

	if events := DetectEvents(series, DefaultConfig()); len(events) != 0 {
		t.Errorf("expected no events on a constant series, got %d", len(events))
	}
}

func TestDetectEvents_ZeroDispersionDoesNotDivide(t *testing.T) {
	rates := make([]float64, 50)
	for i := range rates {
		rates[i] = 2.5
	}
	events := DetectEvents(rateSeries(rates, 1), DefaultConfig())
	if len(events) != 0 {
		t.Errorf("flat series produced %d events", len(events))
	}
}

func TestDetectEvents_FlareEclipseSymmetry(t *testing.T) {
	rates := make([]float64, 100)
	for i := range rates {
		rates[i] = 10
	}
	for i := 20; i < 25; i++ {
		rates[i] = 16
	}

	cfg := DefaultConfig()
	flares := DetectEvents(rateSeries(rates, 1), cfg)
	if len(flares) != 1 || flares[0].Type != EventFlare {
		t.Fatalf("expected one flare, got %+v", flares)
	}

	// Reflect the series around the baseline: excursions become depressions.
	mirrored := make([]float64, len(rates))
	for i, r := range rates {
		mirrored[i] = 20 - r
	}
	eclipses := DetectEvents(rateSeries(mirrored, 1), cfg)
	if len(eclipses) != 1 || eclipses[0].Type != EventEclipse {
		t.Fatalf("expected one eclipse, got %+v", eclipses)
	}

	f, e := flares[0], eclipses[0]
	if f.Start != e.Start || f.End != e.End {
		t.Errorf("intervals differ: flare [%v, %v], eclipse [%v, %v]", f.Start, f.End, e.Start, e.End)
	}
	if math.Abs(f.Significance-e.Significance) > 1e-9 {
		t.Errorf("significance differs: flare %v, eclipse %v", f.Significance, e.Significance)
	}
	if math.Abs(f.Amplitude-e.Amplitude) > 1e-9 {
		t.Errorf("amplitude differs: flare %v, eclipse %v", f.Amplitude, e.Amplitude)
	}
}

func TestDetectEvents_MergesRunsAcrossSmallGaps(t *testing.T) {
	rates := make([]float64, 50)
	for i := range rates {
		rates[i] = 1 + 0.2*float64(i%2) // textured background, nonzero MAD
	}
	for _, i := range []int{10, 11, 12, 14, 15, 16} {
		rates[i] = 10 // one sub-threshold bin at 13 splits the run
	}

	cfg := DefaultConfig() // GapTolerance 2 merges gaps of a single bin
	events := DetectEvents(rateSeries(rates, 1), cfg)
	if len(events) != 1 {
		t.Fatalf("expected a single merged flare, got %d: %+v", len(events), events)
	}
	if events[0].FirstBin != 10 || events[0].LastBin != 16 {
		t.Errorf("expected merged run [10, 16], got [%d, %d]", events[0].FirstBin, events[0].LastBin)
	}

	cfg.GapTolerance = 1 // a 1-bin gap no longer merges
	events = DetectEvents(rateSeries(rates, 1), cfg)
	if len(events) != 2 {
		t.Errorf("expected two separate flares with GapTolerance 1, got %d", len(events))
	}
}

func TestDetectEvents_MinRunFiltersSpikes(t *testing.T) {
	rates := make([]float64, 60)
	for i := range rates {
		rates[i] = 1 + 0.01*float64(i%5) // mild texture so dispersion is nonzero
	}
	rates[30] = 50

	cfg := DefaultConfig()
	cfg.MinRun = 2
	if events := DetectEvents(rateSeries(rates, 1), cfg); len(events) != 0 {
		t.Errorf("single-bin spike survived MinRun=2: %+v", events)
	}

	cfg.MinRun = 1
	events := DetectEvents(rateSeries(rates, 1), cfg)
	if len(events) != 1 {
		t.Fatalf("expected the spike as a 1-bin flare, got %d events", len(events))
	}
}

func TestDetectEvents_ShortSeriesYieldsNothing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinRun = 5
	events := DetectEvents(rateSeries([]float64{1, 9, 1}, 1), cfg)
	if len(events) != 0 {
		t.Errorf("series shorter than MinRun produced events: %+v", events)
	}
}

func TestDetectEvents_EmptySeriesZeroConfig(t *testing.T) {
	// A zero-value Config has MinRun 0, so an empty series reaches the
	// baseline fit; it must come back empty, not panic.
	events := DetectEvents(rateSeries(nil, 1), Config{})
	if len(events) != 0 {
		t.Errorf("empty series produced events: %+v", events)
	}
}

func TestDetectEvents_FlaresClaimBinsBeforeEclipses(t *testing.T) {
	rates := make([]float64, 80)
	for i := range rates {
		rates[i] = 10
	}
	for i := 20; i < 24; i++ {
		rates[i] = 30 // flare
	}
	for i := 50; i < 54; i++ {
		rates[i] = 0.5 // eclipse
	}

	events := DetectEvents(rateSeries(rates, 1), DefaultConfig())
	if len(events) != 2 {
		t.Fatalf("expected one flare and one eclipse, got %d: %+v", len(events), events)
	}
	if events[0].Type != EventFlare || events[1].Type != EventEclipse {
		t.Errorf("expected flare then eclipse ordered by start, got %s then %s", events[0].Type, events[1].Type)
	}
	if events[0].Start >= events[1].Start {
		t.Error("events not ordered by start time")
	}
}

func TestDetectEvents_OutputOrderedByStart(t *testing.T) {
	rates := make([]float64, 100)
	for i := range rates {
		rates[i] = 10
	}
	for i := 70; i < 74; i++ {
		rates[i] = 40
	}
	for i := 10; i < 14; i++ {
		rates[i] = 0.1
	}

	events := DetectEvents(rateSeries(rates, 1), DefaultConfig())
	for i := 1; i < len(events); i++ {
		if events[i].Start < events[i-1].Start {
			t.Fatalf("events out of order: %v after %v", events[i].Start, events[i-1].Start)
		}
	}
	if len(events) != 2 {
		t.Fatalf("expected two events, got %d", len(events))
	}
	if events[0].Type != EventEclipse {
		t.Error("expected the earlier eclipse first in the output")
	}
}
