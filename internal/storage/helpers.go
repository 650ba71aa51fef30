package storage

import (
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/sammarth-k/chandralc/internal/lightcurve"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

func toNullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}

func toMetadata(row *observationRow) lightcurve.Metadata {
	meta := lightcurve.Metadata{
		ObsID:  row.ObsID,
		RA:     row.RA,
		Dec:    row.Dec,
		Galaxy: row.Galaxy,
	}
	if row.ExposureStart.Valid {
		meta.ExposureStart = row.ExposureStart.Time
	}
	if row.ExposureEnd.Valid {
		meta.ExposureEnd = row.ExposureEnd.Time
	}
	return meta
}

func cosDegrees(deg float64) float64 {
	return math.Cos(deg * math.Pi / 180)
}

// angularSeparation returns the great-circle distance in degrees between
// two J2000 positions, via the spherical law of cosines.
func angularSeparation(ra1, dec1, ra2, dec2 float64) float64 {
	const degToRad = math.Pi / 180

	d1 := dec1 * degToRad
	d2 := dec2 * degToRad
	dra := (ra1 - ra2) * degToRad

	cos := math.Sin(d1)*math.Sin(d2) + math.Cos(d1)*math.Cos(d2)*math.Cos(dra)
	// Clamp against rounding before acos.
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) / degToRad
}
