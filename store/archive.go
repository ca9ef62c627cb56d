package store

import (
	"context"
	"errors"
	"time"

	"h2oclear/api/models"
)

// ErrIntervalUnsupported is returned for a bucket interval the backend cannot group by.
var ErrIntervalUnsupported = errors.New("interval not supported")

// Archive keeps a durable copy of generated detections and session events.
// It never feeds back into session state.
type Archive interface {
	RecordDetections(ctx context.Context, sessionID string, at time.Time, detections []models.Detection) error
	RecordEvents(ctx context.Context, events []models.SessionEvent) error
	Close() error
}

// CountsReader is implemented by archives that can aggregate detections.
type CountsReader interface {
	DetectionCountsOverTime(ctx context.Context, interval string, start, end time.Time, material models.MaterialType) ([]models.DetectionCountByTime, error)
}

// NopArchive discards everything.
type NopArchive struct{}

func (NopArchive) RecordDetections(context.Context, string, time.Time, []models.Detection) error {
	return nil
}

func (NopArchive) RecordEvents(context.Context, []models.SessionEvent) error { return nil }

func (NopArchive) Close() error { return nil }
