package telemetry

import (
	"strconv"
	"strings"

	"h2oclear/api/models"
)

const (
	AllLocations = "All Locations"
	AllSizes     = "All Sizes"

	// NoDataMessage is the placeholder row shown when a filter matches nothing.
	NoDataMessage = "No data matches your filters"
)

// Apply returns the detections matching f, preserving order.
func Apply(detections []models.Detection, f models.DetectionFilter) []models.Detection {
	minSize, maxSize, sizeOK := parseSizeRange(f.Size)

	out := make([]models.Detection, 0, len(detections))
	for _, d := range detections {
		if f.Location != "" && f.Location != AllLocations && d.Location != f.Location {
			continue
		}
		if sizeOK && (d.Size < minSize || d.Size > maxSize) {
			continue
		}
		if f.Date != "" && d.Date < f.Date {
			continue
		}
		out = append(out, d)
	}
	return out
}

// parseSizeRange reads "25-50 μm". ok is false when the filter is unset or
// unparsable, in which case no size constraint applies.
func parseSizeRange(s string) (low, high int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == AllSizes {
		return 0, 0, false
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, "μm"))
	lo, hi, found := strings.Cut(s, "-")
	if !found {
		return 0, 0, false
	}
	var err error
	if low, err = strconv.Atoi(strings.TrimSpace(lo)); err != nil {
		return 0, 0, false
	}
	if high, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
		return 0, 0, false
	}
	return low, high, true
}
