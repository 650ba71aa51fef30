package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sammarth-k/chandralc/internal/lightcurve"
)

// SampleReader streams a stored sample series in time order without
// loading the whole exposure into memory. Next advances the iterator;
// Error must be checked once Next returns false to distinguish the end
// of data from a failure.
type SampleReader interface {
	// Meta returns the metadata of the observation being read.
	Meta() lightcurve.Metadata

	// Next advances to the next sample and reports whether one is available.
	Next(ctx context.Context) bool

	// Current returns the sample at the iterator position. Undefined after
	// Next has returned false.
	Current() lightcurve.Sample

	// Error returns any error that occurred during iteration.
	Error() error

	// Close releases the underlying query resources.
	Close() error
}

// ReaderOption configures a SampleReader with filtering criteria.
type ReaderOption func(*sqliteSampleReader)

// WithStartTime excludes samples before t (seconds since observation start).
func WithStartTime(t float64) ReaderOption {
	return func(r *sqliteSampleReader) {
		r.startTime = &t
	}
}

// WithEndTime excludes samples after t (seconds since observation start).
func WithEndTime(t float64) ReaderOption {
	return func(r *sqliteSampleReader) {
		r.endTime = &t
	}
}

// WithTimeRange restricts the reader to samples in [start, end].
func WithTimeRange(start, end float64) ReaderOption {
	return func(r *sqliteSampleReader) {
		r.startTime = &start
		r.endTime = &end
	}
}

// ReadSamples opens a streaming reader over the sample series of an
// observation, optionally restricted to a time window. The caller owns the
// reader and must close it.
func (c *Catalog) ReadSamples(ctx context.Context, obsID int64, opts ...ReaderOption) (SampleReader, error) {
	db, err := c.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	row, err := scanObservationRow(db.QueryRowContext(ctx, selectObservationSQL, obsID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: obsid %d", ErrNotFound, obsID)
		}
		return nil, fmt.Errorf("scanning observation: %w", err)
	}

	r := &sqliteSampleReader{db: db, row: row}
	for _, opt := range opts {
		opt(r)
	}
	if err = r.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing sample reader: %w", err)
	}
	return r, nil
}

type sqliteSampleReader struct {
	db  *sql.DB
	row *observationRow

	startTime *float64 // Optional start of time range filter
	endTime   *float64 // Optional end of time range filter

	current lightcurve.Sample
	rows    *sql.Rows
	err     error
}

func (r *sqliteSampleReader) init(ctx context.Context) error {
	if err := r.initFilters(ctx); err != nil {
		return fmt.Errorf("initializing filters: %w", err)
	}
	if err := r.initQuery(ctx); err != nil {
		return fmt.Errorf("initializing query: %w", err)
	}
	return nil
}

func (r *sqliteSampleReader) initFilters(ctx context.Context) (err error) {
	if r.startTime != nil && r.endTime != nil {
		if *r.startTime > *r.endTime {
			return fmt.Errorf("start time %g is after end time %g", *r.startTime, *r.endTime)
		}
		return nil
	}

	// Unset bounds default to the stored extent of the series.
	stmt, err := r.db.PrepareContext(ctx, selectSampleRangeSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	var minTime, maxTime sql.NullFloat64
	if err = stmt.QueryRowContext(ctx, r.row.ID).Scan(&minTime, &maxTime); err != nil {
		return fmt.Errorf("scanning sample range: %w", err)
	}

	if r.startTime == nil {
		r.startTime = &minTime.Float64
	}
	if r.endTime == nil {
		r.endTime = &maxTime.Float64
	}
	return nil
}

func (r *sqliteSampleReader) initQuery(ctx context.Context) (err error) {
	stmt, err := r.db.PrepareContext(ctx, selectSamplesSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	if r.rows, err = stmt.QueryContext(ctx, r.row.ID, r.startTime, r.endTime); err != nil {
		return err
	}
	return nil
}

func (r *sqliteSampleReader) Meta() lightcurve.Metadata {
	return toMetadata(r.row)
}

func (r *sqliteSampleReader) Next(ctx context.Context) bool {
	if r.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		r.err = err
		return false
	}
	if !r.rows.Next() {
		return false
	}
	if err := r.rows.Scan(&r.current.Time, &r.current.Counts); err != nil {
		r.err = fmt.Errorf("scanning sample: %w", err)
		return false
	}
	return true
}

func (r *sqliteSampleReader) Current() lightcurve.Sample {
	return r.current
}

func (r *sqliteSampleReader) Error() error {
	if r.err != nil {
		return r.err
	}
	return r.rows.Err()
}

func (r *sqliteSampleReader) Close() error {
	return r.rows.Close()
}
