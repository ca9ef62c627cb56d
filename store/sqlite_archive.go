package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"h2oclear/api/models"
)

// sqliteBuckets maps an interval name to a strftime pattern that yields an
// RFC3339 bucket start.
var sqliteBuckets = map[string]string{
	"Minute": "%Y-%m-%dT%H:%M:00Z",
	"Hour":   "%Y-%m-%dT%H:00:00Z",
	"Day":    "%Y-%m-%dT00:00:00Z",
	"Month":  "%Y-%m-01T00:00:00Z",
	"Year":   "%Y-01-01T00:00:00Z",
}

// SQLiteArchive keeps the archive in a local sqlite file.
type SQLiteArchive struct {
	db *sql.DB
}

// NewSQLiteArchive wraps db and creates the archive tables.
func NewSQLiteArchive(db *sql.DB) (*SQLiteArchive, error) {
	a := &SQLiteArchive{db: db}
	if err := a.migrate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *SQLiteArchive) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS detections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			recorded_at INTEGER NOT NULL,
			location TEXT NOT NULL,
			sample_date TEXT NOT NULL,
			size_um INTEGER NOT NULL,
			material TEXT NOT NULL,
			particle_count INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_detections_recorded_at ON detections(recorded_at)`,
		`CREATE TABLE IF NOT EXISTS session_events (
			event_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			page TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			detail TEXT NOT NULL DEFAULT ''
		)`,
	}
	for _, stmt := range statements {
		if _, err := a.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to migrate sqlite archive: %w", err)
		}
	}
	return nil
}

func (a *SQLiteArchive) RecordDetections(ctx context.Context, sessionID string, at time.Time, detections []models.Detection) error {
	if len(detections) == 0 {
		return nil
	}
	return a.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO detections (session_id, recorded_at, location, sample_date, size_um, material, particle_count)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare detection insert: %w", err)
		}
		defer stmt.Close()

		for _, d := range detections {
			if _, err := stmt.ExecContext(ctx, sessionID, at.UTC().Unix(), d.Location, d.Date, d.Size, string(d.Type), d.Count); err != nil {
				return fmt.Errorf("failed to insert detection: %w", err)
			}
		}
		return nil
	})
}

func (a *SQLiteArchive) RecordEvents(ctx context.Context, events []models.SessionEvent) error {
	if len(events) == 0 {
		return nil
	}
	return a.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO session_events (event_id, session_id, event_type, page, timestamp, detail)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare event insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range events {
			if _, err := stmt.ExecContext(ctx, e.EventID, e.SessionID, e.EventType, string(e.Page), e.Timestamp.UTC().Unix(), e.Detail); err != nil {
				return fmt.Errorf("failed to insert event %s: %w", e.EventID, err)
			}
		}
		return nil
	})
}

func (a *SQLiteArchive) DetectionCountsOverTime(ctx context.Context, interval string, start, end time.Time, material models.MaterialType) ([]models.DetectionCountByTime, error) {
	pattern, ok := sqliteBuckets[interval]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIntervalUnsupported, interval)
	}

	query := `
		SELECT strftime(?, recorded_at, 'unixepoch') AS time_bucket, COUNT(*), COALESCE(SUM(particle_count), 0)
		FROM detections
		WHERE recorded_at >= ? AND recorded_at <= ?`
	args := []interface{}{pattern, start.UTC().Unix(), end.UTC().Unix()}
	if material != "" {
		query += " AND material = ?"
		args = append(args, string(material))
	}
	query += " GROUP BY time_bucket ORDER BY time_bucket ASC"

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query detection counts over time: %w", err)
	}
	defer rows.Close()

	var results []models.DetectionCountByTime
	for rows.Next() {
		var (
			bucket    string
			records   uint64
			particles uint64
		)
		if err := rows.Scan(&bucket, &records, &particles); err != nil {
			return nil, fmt.Errorf("scanning detection counts: %w", err)
		}
		t, err := time.Parse(time.RFC3339, bucket)
		if err != nil {
			return nil, fmt.Errorf("parsing bucket %q: %w", bucket, err)
		}
		r := models.DetectionCountByTime{Time: t, Records: records, Particles: particles}
		if material != "" {
			m := material
			r.Type = &m
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during detection counts query: %w", err)
	}
	return results, nil
}

func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}

func (a *SQLiteArchive) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
