package storage

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/sammarth-k/chandralc/internal/analysis"
	"github.com/sammarth-k/chandralc/internal/lightcurve"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog := NewCatalog(filepath.Join(t.TempDir(), "archive.sqlite"))
	t.Cleanup(func() {
		if err := catalog.Close(); err != nil {
			t.Errorf("closing catalog: %v", err)
		}
	})
	return catalog
}

func testObservation(t *testing.T, meta lightcurve.Metadata) *lightcurve.Observation {
	t.Helper()
	samples := []lightcurve.Sample{
		{Time: 0, Counts: 1},
		{Time: 10, Counts: 0},
		{Time: 20, Counts: 3},
		{Time: 30, Counts: 2},
	}
	obs, err := lightcurve.New(meta, samples)
	if err != nil {
		t.Fatalf("building observation: %v", err)
	}
	return obs
}

func TestCatalog_ObservationRoundTrip(t *testing.T) {
	catalog := testCatalog(t)
	ctx := context.Background()

	meta := lightcurve.Metadata{
		ObsID:         4613,
		RA:            202.47,
		Dec:           47.195,
		Galaxy:        "M51",
		ExposureStart: time.Date(2004, 7, 20, 3, 15, 0, 0, time.UTC),
		ExposureEnd:   time.Date(2004, 7, 20, 17, 40, 0, 0, time.UTC),
	}
	want := testObservation(t, meta)

	if _, err := catalog.PutObservation(ctx, want); err != nil {
		t.Fatalf("PutObservation failed: %v", err)
	}

	got, err := catalog.Observation(ctx, 4613)
	if err != nil {
		t.Fatalf("Observation failed: %v", err)
	}

	if got.Meta().Galaxy != "M51" || got.Meta().ObsID != 4613 {
		t.Errorf("metadata mismatch: %+v", got.Meta())
	}
	if !got.Meta().ExposureStart.Equal(meta.ExposureStart) {
		t.Errorf("exposure start mismatch: %v", got.Meta().ExposureStart)
	}
	if got.TotalCounts() != want.TotalCounts() {
		t.Errorf("expected %d total counts, got %d", want.TotalCounts(), got.TotalCounts())
	}
	if got.Len() != want.Len() {
		t.Errorf("expected %d samples, got %d", want.Len(), got.Len())
	}
	for i, s := range got.Samples() {
		if s != want.Samples()[i] {
			t.Errorf("sample %d mismatch: %+v != %+v", i, s, want.Samples()[i])
		}
	}
}

func TestCatalog_ObservationNotFound(t *testing.T) {
	catalog := testCatalog(t)
	ctx := context.Background()

	// Force schema creation so the read connection has a file to open.
	if _, err := catalog.PutObservation(ctx, testObservation(t, lightcurve.Metadata{ObsID: 1})); err != nil {
		t.Fatalf("PutObservation failed: %v", err)
	}

	if _, err := catalog.Observation(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalog_FindByGalaxy(t *testing.T) {
	catalog := testCatalog(t)
	ctx := context.Background()

	for i, galaxy := range []string{"M81", "M81", "NGC1399"} {
		meta := lightcurve.Metadata{ObsID: int64(100 + i), Galaxy: galaxy, RA: float64(i), Dec: float64(i)}
		if _, err := catalog.PutObservation(ctx, testObservation(t, meta)); err != nil {
			t.Fatalf("PutObservation failed: %v", err)
		}
	}

	metas, err := catalog.FindByGalaxy(ctx, "M81")
	if err != nil {
		t.Fatalf("FindByGalaxy failed: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected 2 M81 observations, got %d", len(metas))
	}
	for _, m := range metas {
		if m.Galaxy != "M81" {
			t.Errorf("unexpected galaxy %q", m.Galaxy)
		}
	}
}

func TestCatalog_FindByCone(t *testing.T) {
	catalog := testCatalog(t)
	ctx := context.Background()

	positions := []struct {
		obsID   int64
		ra, dec float64
	}{
		{1, 150.00, 2.20},
		{2, 150.05, 2.21}, // ~0.05 degrees from the first
		{3, 210.80, 54.35},
	}
	for _, p := range positions {
		meta := lightcurve.Metadata{ObsID: p.obsID, Galaxy: "TEST", RA: p.ra, Dec: p.dec}
		if _, err := catalog.PutObservation(ctx, testObservation(t, meta)); err != nil {
			t.Fatalf("PutObservation failed: %v", err)
		}
	}

	metas, err := catalog.FindByCone(ctx, 150.0, 2.2, 0.1)
	if err != nil {
		t.Fatalf("FindByCone failed: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected 2 observations within the cone, got %d", len(metas))
	}
	for _, m := range metas {
		if m.ObsID == 3 {
			t.Error("distant observation matched the cone")
		}
	}

	// A tiny radius leaves only the exact position.
	metas, err = catalog.FindByCone(ctx, 150.0, 2.2, 0.01)
	if err != nil {
		t.Fatalf("FindByCone failed: %v", err)
	}
	if len(metas) != 1 || metas[0].ObsID != 1 {
		t.Fatalf("expected only the exact position, got %+v", metas)
	}
}

func TestCatalog_ReadSamplesStreamsInOrder(t *testing.T) {
	catalog := testCatalog(t)
	ctx := context.Background()

	meta := lightcurve.Metadata{ObsID: 12, Galaxy: "M51"}
	want := testObservation(t, meta)
	if _, err := catalog.PutObservation(ctx, want); err != nil {
		t.Fatalf("PutObservation failed: %v", err)
	}

	reader, err := catalog.ReadSamples(ctx, 12)
	if err != nil {
		t.Fatalf("ReadSamples failed: %v", err)
	}
	defer reader.Close()

	if reader.Meta().Galaxy != "M51" || reader.Meta().ObsID != 12 {
		t.Errorf("metadata mismatch: %+v", reader.Meta())
	}

	var got []lightcurve.Sample
	for reader.Next(ctx) {
		got = append(got, reader.Current())
	}
	if err = reader.Error(); err != nil {
		t.Fatalf("iteration failed: %v", err)
	}

	if len(got) != want.Len() {
		t.Fatalf("expected %d samples, got %d", want.Len(), len(got))
	}
	for i, s := range got {
		if s != want.Samples()[i] {
			t.Errorf("sample %d mismatch: %+v != %+v", i, s, want.Samples()[i])
		}
	}
}

func TestCatalog_ReadSamplesTimeRange(t *testing.T) {
	catalog := testCatalog(t)
	ctx := context.Background()

	if _, err := catalog.PutObservation(ctx, testObservation(t, lightcurve.Metadata{ObsID: 13})); err != nil {
		t.Fatalf("PutObservation failed: %v", err)
	}

	reader, err := catalog.ReadSamples(ctx, 13, WithTimeRange(10, 20))
	if err != nil {
		t.Fatalf("ReadSamples failed: %v", err)
	}
	defer reader.Close()

	var times []float64
	for reader.Next(ctx) {
		times = append(times, reader.Current().Time)
	}
	if err = reader.Error(); err != nil {
		t.Fatalf("iteration failed: %v", err)
	}

	if len(times) != 2 || times[0] != 10 || times[1] != 20 {
		t.Errorf("expected samples at [10 20], got %v", times)
	}

	// An inverted window is rejected at construction.
	if _, err = catalog.ReadSamples(ctx, 13, WithTimeRange(20, 10)); err == nil {
		t.Error("expected an error for an inverted time range")
	}
}

func TestCatalog_ReadSamplesUnknownObservation(t *testing.T) {
	catalog := testCatalog(t)
	ctx := context.Background()

	if _, err := catalog.PutObservation(ctx, testObservation(t, lightcurve.Metadata{ObsID: 1})); err != nil {
		t.Fatalf("PutObservation failed: %v", err)
	}
	if _, err := catalog.ReadSamples(ctx, 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalog_EventsRoundTrip(t *testing.T) {
	catalog := testCatalog(t)
	ctx := context.Background()

	meta := lightcurve.Metadata{ObsID: 7, Galaxy: "M31"}
	if _, err := catalog.PutObservation(ctx, testObservation(t, meta)); err != nil {
		t.Fatalf("PutObservation failed: %v", err)
	}

	detected := []analysis.Event{
		{
			Type: analysis.EventFlare, Start: 400, End: 450,
			PeakTime: 420, PeakRate: 5, Baseline: 0.1,
			Amplitude: 4.9, Significance: 4.5,
		},
		{
			Type: analysis.EventEclipse, Start: 700, End: 760,
			PeakTime: 730, PeakRate: 0.01, Baseline: 0.1,
			Amplitude: 0.09, Significance: 3.2,
		},
	}
	if err := catalog.PutEvents(ctx, 7, 10, detected); err != nil {
		t.Fatalf("PutEvents failed: %v", err)
	}

	events, err := catalog.Events(ctx, 7)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Kind != string(analysis.EventFlare) || events[1].Kind != string(analysis.EventEclipse) {
		t.Errorf("unexpected event kinds: %s, %s", events[0].Kind, events[1].Kind)
	}
	if events[0].BinWidth != 10 {
		t.Errorf("expected bin width 10, got %v", events[0].BinWidth)
	}
	if math.Abs(events[0].Significance-4.5) > 1e-12 {
		t.Errorf("significance mismatch: %v", events[0].Significance)
	}

	// PutEvents replaces previous detections.
	if err := catalog.PutEvents(ctx, 7, 20, detected[:1]); err != nil {
		t.Fatalf("PutEvents failed: %v", err)
	}
	events, err = catalog.Events(ctx, 7)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected detections to be replaced, got %d events", len(events))
	}
}

func TestCatalog_PutEventsUnknownObservation(t *testing.T) {
	catalog := testCatalog(t)
	ctx := context.Background()

	if _, err := catalog.PutObservation(ctx, testObservation(t, lightcurve.Metadata{ObsID: 1})); err != nil {
		t.Fatalf("PutObservation failed: %v", err)
	}
	if err := catalog.PutEvents(ctx, 42, 10, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
