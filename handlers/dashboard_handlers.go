package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"h2oclear/api/middleware"
	"h2oclear/api/models"
	"h2oclear/api/store"
	"h2oclear/api/telemetry"
)

const exportFileName = "microplastic-detections.json"

type DashboardHandlers struct {
	Archive store.Archive
}

func NewDashboardHandlers(archive store.Archive) *DashboardHandlers {
	return &DashboardHandlers{Archive: archive}
}

// Detections lists the table rows, filtered when any filter is given.
func (h *DashboardHandlers) Detections(c *gin.Context) {
	var filter models.DetectionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter", "details": err.Error()})
		return
	}

	rows := middleware.Session(c).Detections(filter)
	resp := gin.H{"rows": rows, "count": len(rows)}
	if len(rows) == 0 && filter != (models.DetectionFilter{}) {
		resp["placeholder"] = telemetry.NoDataMessage
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DashboardHandlers) Charts(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.Session(c).Charts())
}

// Export downloads the in-memory detections as a JSON file.
func (h *DashboardHandlers) Export(c *gin.Context) {
	ctrl := middleware.Session(c)
	body, err := ctrl.Export(c.Request.Context())
	if err != nil {
		log.Printf("ERROR: Export failed for session %s: %v", ctrl.ID(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export detections"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+exportFileName+`"`)
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// DetectionCounts aggregates archived detections into time buckets.
func (h *DashboardHandlers) DetectionCounts(c *gin.Context) {
	reader, ok := h.Archive.(store.CountsReader)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Detection archive is not enabled"})
		return
	}

	var q models.CountsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query", "details": err.Error()})
		return
	}
	if q.Interval == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval query parameter is required (e.g., 'Day', 'Hour')"})
		return
	}

	material := models.MaterialType(q.Type)
	if material != "" && !knownMaterial(material) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown material type"})
		return
	}

	end := time.Now().UTC()
	start := end.Add(-7 * 24 * time.Hour)
	var err error
	if q.Start != "" {
		if start, err = time.Parse(time.RFC3339, q.Start); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'start' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
			return
		}
	}
	if q.End != "" {
		if end, err = time.Parse(time.RFC3339, q.End); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'end' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := reader.DetectionCountsOverTime(ctx, q.Interval, start, end, material)
	if err != nil {
		if errors.Is(err, store.ErrIntervalUnsupported) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("Error getting detection counts over time: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve detection statistics"})
		return
	}
	if results == nil {
		results = []models.DetectionCountByTime{}
	}
	c.JSON(http.StatusOK, results)
}

func knownMaterial(m models.MaterialType) bool {
	for _, t := range models.MaterialTypes {
		if t == m {
			return true
		}
	}
	return false
}
