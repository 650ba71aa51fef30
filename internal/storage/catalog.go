// Package storage implements the SQLite-backed archive catalog: observation
// metadata, raw sample series and detected events, with lookup by ObsID,
// galaxy or sky position. The catalog satisfies the Repository interface the
// analysis tools depend on, keeping the engine free of database state.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sammarth-k/chandralc/internal/analysis"
	"github.com/sammarth-k/chandralc/internal/lightcurve"
)

// ErrNotFound indicates that no catalog entry matches the given lookup.
var ErrNotFound = errors.New("observation not found")

// Repository is the lookup capability the analysis tools consume. Anything
// that can resolve observations by identifier or position can back them;
// the SQLite catalog is the default implementation.
type Repository interface {
	// Observation loads the full sample series and metadata by ObsID.
	Observation(ctx context.Context, obsID int64) (*lightcurve.Observation, error)

	// Observations lists the metadata of every cataloged observation.
	Observations(ctx context.Context) ([]lightcurve.Metadata, error)

	// FindByGalaxy lists observations of sources in the named galaxy.
	FindByGalaxy(ctx context.Context, galaxy string) ([]lightcurve.Metadata, error)

	// FindByCone lists observations within radius degrees of (ra, dec).
	FindByCone(ctx context.Context, ra, dec, radius float64) ([]lightcurve.Metadata, error)
}

// Catalog handles database operations against a single SQLite archive file.
// Write and read connections are opened lazily and independently, so a
// read-only consumer never creates the schema.
type Catalog struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewCatalog creates a catalog backed by the SQLite database at dbPath.
// The file is not touched until the first operation.
func NewCatalog(dbPath string) *Catalog {
	return &Catalog{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (c *Catalog) getWriteDB() (*sql.DB, error) {
	c.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", c.dbPath, "_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on"))
		if err != nil {
			c.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, schemaSQL); err != nil {
			_ = db.Close()
			c.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		c.writeDB = db
	})

	return c.writeDB, c.writeDBErr
}

func (c *Catalog) getReadDB() (*sql.DB, error) {
	c.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", c.dbPath, "mode=ro"))
		if err != nil {
			c.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		c.readDB = db
	})

	return c.readDB, c.readDBErr
}

// PutObservation stores an observation's metadata and full sample series in
// one transaction and returns the catalog row ID.
func (c *Catalog) PutObservation(ctx context.Context, obs *lightcurve.Observation) (id int64, err error) {
	db, err := c.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		err = fmt.Errorf("beginning transaction: %w", err)
		return
	}
	defer rollbackWithError(tx, &err)

	meta := obs.Meta()
	result, err := tx.ExecContext(ctx, insertObservationSQL,
		meta.ObsID, meta.Galaxy, meta.RA, meta.Dec,
		toNullTime(meta.ExposureStart), toNullTime(meta.ExposureEnd))
	if err != nil {
		err = fmt.Errorf("inserting observation: %w", err)
		return
	}

	if id, err = result.LastInsertId(); err != nil {
		err = fmt.Errorf("getting observation ID: %w", err)
		return
	}

	stmt, err := tx.PrepareContext(ctx, insertSampleSQL)
	if err != nil {
		err = fmt.Errorf("preparing sample statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	for _, s := range obs.Samples() {
		if _, err = stmt.ExecContext(ctx, id, s.Time, s.Counts); err != nil {
			err = fmt.Errorf("inserting sample at t=%g: %w", s.Time, err)
			return
		}
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("committing observation: %w", err)
	}
	return
}

// Observation loads an observation and its sample series by ObsID. The
// series is streamed through a SampleReader rather than fetched in one
// query.
func (c *Catalog) Observation(ctx context.Context, obsID int64) (obs *lightcurve.Observation, err error) {
	reader, err := c.ReadSamples(ctx, obsID)
	if err != nil {
		return
	}
	defer closeWithError(reader, &err)

	var samples []lightcurve.Sample
	for reader.Next(ctx) {
		samples = append(samples, reader.Current())
	}
	if err = reader.Error(); err != nil {
		err = fmt.Errorf("iterating samples: %w", err)
		return
	}

	if obs, err = lightcurve.New(reader.Meta(), samples); err != nil {
		err = fmt.Errorf("rebuilding observation %d: %w", obsID, err)
	}
	return
}

// Observations lists the metadata of every cataloged observation.
func (c *Catalog) Observations(ctx context.Context) ([]lightcurve.Metadata, error) {
	return c.queryMetadata(ctx, selectObservationsSQL)
}

// FindByGalaxy lists observations of sources in the named galaxy.
func (c *Catalog) FindByGalaxy(ctx context.Context, galaxy string) ([]lightcurve.Metadata, error) {
	return c.queryMetadata(ctx, selectByGalaxySQL, galaxy)
}

// FindByCone lists observations whose source lies within radius degrees of
// (ra, dec). The SQL pass uses a declination-corrected bounding box; the
// exact great-circle cut happens here. A box crossing RA 0/360 falls back
// to a full RA range rather than splitting the query.
func (c *Catalog) FindByCone(ctx context.Context, ra, dec, radius float64) ([]lightcurve.Metadata, error) {
	minDec, maxDec := dec-radius, dec+radius

	minRA, maxRA := 0.0, 360.0
	if cosDec := cosDegrees(dec); cosDec > 1e-6 {
		delta := radius / cosDec
		if delta < 180 {
			minRA, maxRA = ra-delta, ra+delta
			if minRA < 0 || maxRA > 360 {
				minRA, maxRA = 0, 360
			}
		}
	}

	candidates, err := c.queryMetadata(ctx, selectByBoxSQL, minDec, maxDec, minRA, maxRA)
	if err != nil {
		return nil, err
	}

	matches := candidates[:0]
	for _, meta := range candidates {
		if angularSeparation(ra, dec, meta.RA, meta.Dec) <= radius {
			matches = append(matches, meta)
		}
	}
	return matches, nil
}

func (c *Catalog) queryMetadata(ctx context.Context, query string, args ...any) (metas []lightcurve.Metadata, err error) {
	db, err := c.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		err = fmt.Errorf("querying observations: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var row observationRow
		if err = rows.Scan(&row.ID, &row.ObsID, &row.Galaxy, &row.RA, &row.Dec,
			&row.ExposureStart, &row.ExposureEnd); err != nil {
			err = fmt.Errorf("scanning observation: %w", err)
			return
		}
		metas = append(metas, toMetadata(&row))
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating observations: %w", err)
	}
	return
}

// PutEvents replaces the stored detections for an observation with the
// given list, recording the bin width the detection ran at.
func (c *Catalog) PutEvents(ctx context.Context, obsID int64, binWidth float64, events []analysis.Event) (err error) {
	db, err := c.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	row, err := scanObservationRow(db.QueryRowContext(ctx, selectObservationSQL, obsID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: obsid %d", ErrNotFound, obsID)
		}
		return fmt.Errorf("scanning observation: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	if _, err = tx.ExecContext(ctx, deleteEventsSQL, row.ID); err != nil {
		return fmt.Errorf("clearing previous events: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertEventSQL)
	if err != nil {
		return fmt.Errorf("preparing event statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	for _, e := range events {
		if _, err = stmt.ExecContext(ctx, row.ID, string(e.Type),
			e.Start, e.End, e.PeakTime, e.PeakRate,
			e.Baseline, e.Amplitude, e.Significance, binWidth); err != nil {
			return fmt.Errorf("inserting %s at t=%g: %w", e.Type, e.Start, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing events: %w", err)
	}
	return nil
}

// Events lists the stored detections for an observation, ordered by start.
func (c *Catalog) Events(ctx context.Context, obsID int64) (events []StoredEvent, err error) {
	db, err := c.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	row, err := scanObservationRow(db.QueryRowContext(ctx, selectObservationSQL, obsID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = fmt.Errorf("%w: obsid %d", ErrNotFound, obsID)
			return
		}
		err = fmt.Errorf("scanning observation: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectEventsSQL, row.ID)
	if err != nil {
		err = fmt.Errorf("querying events: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var e StoredEvent
		if err = rows.Scan(&e.ID, &e.Kind, &e.Start, &e.End, &e.PeakTime, &e.PeakRate,
			&e.Baseline, &e.Amplitude, &e.Significance, &e.BinWidth, &e.DetectedAt); err != nil {
			err = fmt.Errorf("scanning event: %w", err)
			return
		}
		events = append(events, e)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating events: %w", err)
	}
	return
}

// Close releases both database connections. Safe to call more than once.
func (c *Catalog) Close() error {
	c.closeOnce.Do(func() {
		var errs []error
		if c.writeDB != nil {
			if err := c.writeDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing write connection: %w", err))
			}
		}
		if c.readDB != nil {
			if err := c.readDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing read connection: %w", err))
			}
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

func scanObservationRow(r *sql.Row) (*observationRow, error) {
	var row observationRow
	if err := r.Scan(&row.ID, &row.ObsID, &row.Galaxy, &row.RA, &row.Dec,
		&row.ExposureStart, &row.ExposureEnd); err != nil {
		return nil, err
	}
	return &row, nil
}
