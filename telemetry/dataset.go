package telemetry

import (
	"h2oclear/api/models"
)

const (
	// MaxDetections caps the recent-detections list.
	MaxDetections = 10
	// SeriesLength is the width of the sliding time-series window.
	SeriesLength = 6
	// SeriesFloor is the lowest value Advance will append.
	SeriesFloor = 100
)

// Dataset is the dashboard's in-memory sample data. It is not safe for
// concurrent use; the session controller serializes access.
type Dataset struct {
	detections []models.Detection
	series     []int
}

// NewDataset returns a dataset seeded with the fixed sample values.
func NewDataset() *Dataset {
	d := &Dataset{
		detections: []models.Detection{
			{Location: "Lake Superior", Date: "2025-09-22", Size: 45, Type: models.MaterialPET, Count: 127},
			{Location: "Thames River", Date: "2025-09-21", Size: 78, Type: models.MaterialPE, Count: 89},
			{Location: "Pacific Ocean", Date: "2025-09-20", Size: 23, Type: models.MaterialPP, Count: 234},
			{Location: "Mediterranean", Date: "2025-09-19", Size: 56, Type: models.MaterialPVC, Count: 156},
			{Location: "Atlantic Ocean", Date: "2025-09-18", Size: 67, Type: models.MaterialPS, Count: 98},
		},
		series: []int{145, 178, 203, 167, 189, 221},
	}
	return d
}

// Detections returns a copy of the list, most recent first.
func (d *Dataset) Detections() []models.Detection {
	out := make([]models.Detection, len(d.detections))
	copy(out, d.detections)
	return out
}

// Series returns a copy of the time series, oldest first.
func (d *Dataset) Series() []int {
	out := make([]int, len(d.series))
	copy(out, d.series)
	return out
}

// Prepend adds det as the most recent detection and evicts the oldest
// entries beyond MaxDetections.
func (d *Dataset) Prepend(det models.Detection) {
	d.detections = append([]models.Detection{det}, d.detections...)
	if len(d.detections) > MaxDetections {
		d.detections = d.detections[:MaxDetections]
	}
}

// Advance appends max(SeriesFloor, last+delta) and drops the oldest value.
// It returns the appended value.
func (d *Dataset) Advance(delta int) int {
	next := d.series[len(d.series)-1] + delta
	if next < SeriesFloor {
		next = SeriesFloor
	}
	d.series = append(d.series[1:], next)
	return next
}
