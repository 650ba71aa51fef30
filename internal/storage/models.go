package storage

import (
	"database/sql"
	"time"
)

// observationRow mirrors an observations table row.
type observationRow struct {
	ID            int64
	ObsID         int64
	Galaxy        string
	RA            float64
	Dec           float64
	ExposureStart sql.NullTime
	ExposureEnd   sql.NullTime
}

// StoredEvent is a detected event as persisted in the catalog, including
// the bin width it was detected at and when the detection ran.
type StoredEvent struct {
	ID           int64
	Kind         string
	Start        float64
	End          float64
	PeakTime     float64
	PeakRate     float64
	Baseline     float64
	Amplitude    float64
	Significance float64
	BinWidth     float64
	DetectedAt   time.Time
}
