package storage

import (
	_ "embed"
)

const (
	insertObservationSQL = `
INSERT INTO observations (obsid,
                          galaxy,
                          ra,
                          dec,
                          exposure_start,
                          exposure_end)
VALUES (?, ?, ?, ?, ?, ?)`

	insertSampleSQL = `
INSERT INTO samples (observation_id,
                     time,
                     counts)
VALUES (?, ?, ?)`

	insertEventSQL = `
INSERT INTO events (observation_id,
                    kind,
                    start_time,
                    end_time,
                    peak_time,
                    peak_rate,
                    baseline,
                    amplitude,
                    significance,
                    bin_width)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectObservationSQL = `
SELECT
    id,
    obsid,
    galaxy,
    ra,
    dec,
    exposure_start,
    exposure_end
FROM observations
WHERE
    obsid = ?`

	selectObservationsSQL = `
SELECT
    id,
    obsid,
    galaxy,
    ra,
    dec,
    exposure_start,
    exposure_end
FROM observations
ORDER BY obsid`

	selectByGalaxySQL = `
SELECT
    id,
    obsid,
    galaxy,
    ra,
    dec,
    exposure_start,
    exposure_end
FROM observations
WHERE
    galaxy = ?
ORDER BY obsid`

	selectByBoxSQL = `
SELECT
    id,
    obsid,
    galaxy,
    ra,
    dec,
    exposure_start,
    exposure_end
FROM observations
WHERE
    dec BETWEEN ? AND ?
    AND ra BETWEEN ? AND ?
ORDER BY obsid`

	selectSampleRangeSQL = `
SELECT
    MIN(time),
    MAX(time)
FROM samples
WHERE
    observation_id = ?`

	selectSamplesSQL = `
SELECT
    time,
    counts
FROM samples
WHERE
    observation_id = ?
    AND time BETWEEN ? AND ?
ORDER BY time`

	selectEventsSQL = `
SELECT
    id,
    kind,
    start_time,
    end_time,
    peak_time,
    peak_rate,
    baseline,
    amplitude,
    significance,
    bin_width,
    detected_at
FROM events
WHERE
    observation_id = ?
ORDER BY start_time`

	deleteEventsSQL = `
DELETE FROM events
WHERE
    observation_id = ?`
)

//go:embed schema.sql
var schemaSQL string
