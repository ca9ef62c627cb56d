package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"h2oclear/api/middleware"
	"h2oclear/api/session"
)

// Connect pairs the session's device. The request blocks until pairing ends.
func Connect(c *gin.Context) {
	ctrl := middleware.Session(c)
	state, err := ctrl.Connect(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, state)
	case errors.Is(err, session.ErrPairingInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "Device pairing already in progress"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "Pairing interrupted", "state": state})
	default:
		log.Printf("ERROR: Pairing failed for session %s: %v", ctrl.ID(), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Device pairing failed"})
	}
}

func Disconnect(c *gin.Context) {
	ctrl := middleware.Session(c)
	state, err := ctrl.Disconnect(c.Request.Context())
	if err != nil {
		log.Printf("ERROR: Unpairing failed for session %s: %v", ctrl.ID(), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Device unpairing failed"})
		return
	}
	c.JSON(http.StatusOK, state)
}
