package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"h2oclear/api/auth"
	"h2oclear/api/models"
	"h2oclear/api/store"
)

// OperatorCreator is the part of the operator store signup needs.
type OperatorCreator interface {
	CreateOperator(ctx context.Context, username string, hashedPassword []byte) (*models.Operator, error)
}

type OperatorHandlers struct {
	Operators OperatorCreator
}

func NewOperatorHandlers(operators OperatorCreator) *OperatorHandlers {
	return &OperatorHandlers{Operators: operators}
}

// Signup registers a dashboard operator for AUTH_MODE=postgres.
func (h *OperatorHandlers) Signup(c *gin.Context) {
	var req models.OperatorSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("ERROR: Failed to hash password for %s: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	op, err := h.Operators.CreateOperator(c.Request.Context(), req.Username, hashedPassword)
	if err != nil {
		if errors.Is(err, store.ErrOperatorExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "Operator with this username already exists"})
			return
		}
		log.Printf("ERROR: Failed to create operator %s: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register operator"})
		return
	}

	log.Printf("Operator registered: ID=%d, Username=%s", op.ID, op.Username)
	c.JSON(http.StatusCreated, gin.H{"message": "Operator registered successfully", "username": op.Username})
}
