package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"h2oclear/api/database"
	"h2oclear/api/models"
	"h2oclear/api/utils"
)

// ClickHouseArchive batches detections and session events into ClickHouse.
type ClickHouseArchive struct {
	DB *database.ClickHouseClient
}

func NewClickHouseArchive(chClient *database.ClickHouseClient) *ClickHouseArchive {
	return &ClickHouseArchive{
		DB: chClient,
	}
}

// EnsureSchema creates the archive tables when they are missing.
func (s *ClickHouseArchive) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS detections (
			session_id String,
			recorded_at DateTime64(3, 'UTC'),
			location LowCardinality(String),
			sample_date String,
			size_um UInt32,
			material LowCardinality(String),
			particle_count UInt32
		) ENGINE = MergeTree ORDER BY (recorded_at, session_id)`,
		`CREATE TABLE IF NOT EXISTS session_events (
			event_id String,
			session_id String,
			event_type LowCardinality(String),
			page LowCardinality(String),
			timestamp DateTime64(3, 'UTC'),
			detail String
		) ENGINE = MergeTree ORDER BY (timestamp, session_id)`,
	}
	for _, stmt := range statements {
		if err := s.DB.Conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create archive table: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseArchive) RecordDetections(ctx context.Context, sessionID string, at time.Time, detections []models.Detection) error {
	if len(detections) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO detections (
			session_id, recorded_at, location, sample_date, size_um, material, particle_count
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, d := range detections {
		err := batch.Append(
			sessionID,
			at.UTC(),
			d.Location,
			d.Date,
			uint32(d.Size),
			string(d.Type),
			uint32(d.Count),
		)
		if err != nil {
			log.Printf("Error appending detection to batch (session %s): %v", sessionID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

func (s *ClickHouseArchive) RecordEvents(ctx context.Context, events []models.SessionEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO session_events (
			event_id, session_id, event_type, page, timestamp, detail
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, e := range events {
		err := batch.Append(
			e.EventID,
			e.SessionID,
			e.EventType,
			string(e.Page),
			e.Timestamp.UTC(),
			e.Detail,
		)
		if err != nil {
			log.Printf("Error appending event to batch (EventID: %s): %v", e.EventID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

func (s *ClickHouseArchive) DetectionCountsOverTime(ctx context.Context, interval string, start, end time.Time, material models.MaterialType) ([]models.DetectionCountByTime, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("%w: %s", ErrIntervalUnsupported, interval)
	}

	args := []interface{}{start, end}
	whereClause := "WHERE recorded_at >= ? AND recorded_at <= ?"
	if material != "" {
		whereClause += " AND material = ?"
		args = append(args, string(material))
	}

	query := fmt.Sprintf(`
		SELECT toStartOf%s(recorded_at) AS time_bucket, count() AS records, sum(particle_count) AS particles
		FROM detections
		%s
		GROUP BY time_bucket
		ORDER BY time_bucket ASC
	`, interval, whereClause)

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query detection counts over time: %w", err)
	}
	defer rows.Close()

	var results []models.DetectionCountByTime
	for rows.Next() {
		var (
			bucket    time.Time
			records   uint64
			particles uint64
		)
		if err := rows.Scan(&bucket, &records, &particles); err != nil {
			log.Printf("Error scanning row for detection counts: %v", err)
			continue
		}
		r := models.DetectionCountByTime{Time: bucket, Records: records, Particles: particles}
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

func (s *ClickHouseArchive) Close() error {
	return s.DB.Close()
}
