package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"h2oclear/api/auth"
	"h2oclear/api/middleware"
	"h2oclear/api/models"
	"h2oclear/api/session"
	"h2oclear/api/utils"
)

type SessionHandlers struct {
	Sessions     *session.Manager
	Tokens       *utils.TokenIssuer
	SecureCookie bool
}

func NewSessionHandlers(sessions *session.Manager, tokens *utils.TokenIssuer, secureCookie bool) *SessionHandlers {
	return &SessionHandlers{Sessions: sessions, Tokens: tokens, SecureCookie: secureCookie}
}

// Create starts a fresh session, the equivalent of a page load.
func (h *SessionHandlers) Create(c *gin.Context) {
	ctrl := h.Sessions.Create()

	tokenString, err := h.Tokens.GenerateJWT(ctrl.ID())
	if err != nil {
		log.Printf("ERROR: Failed to generate session token for %s: %v", ctrl.ID(), err)
		h.Sessions.End(ctrl.ID())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start session"})
		return
	}

	c.SetCookie(
		middleware.SessionCookie,
		tokenString,
		int(h.Tokens.TTL().Seconds()),
		"/",
		"",
		h.SecureCookie,
		true,
	)

	c.JSON(http.StatusCreated, gin.H{
		"sessionId": ctrl.ID(),
		"token":     tokenString,
		"state":     ctrl.State(),
	})
}

func (h *SessionHandlers) State(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.Session(c).State())
}

func (h *SessionHandlers) View(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.Session(c).Rendered())
}

// Stream attaches a websocket that receives every view update.
func (h *SessionHandlers) Stream(c *gin.Context) {
	ctrl := middleware.Session(c)
	if err := ctrl.Hub().Serve(c.Writer, c.Request, ctrl.Rendered); err != nil {
		log.Printf("Session %s: websocket upgrade failed: %v", ctrl.ID(), err)
	}
}

func (h *SessionHandlers) Navigate(c *gin.Context) {
	var req models.NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, middleware.Session(c).Navigate(c.Request.Context(), req.Page))
}

func (h *SessionHandlers) Key(c *gin.Context) {
	var req models.KeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	out, handled := middleware.Session(c).Key(c.Request.Context(), req.Key, req.Ctrl, req.Meta)
	c.JSON(http.StatusOK, gin.H{"handled": handled, "outcome": out})
}

// Login blocks for the authentication and redirect delays and answers with
// the dashboard outcome.
func (h *SessionHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ctrl := middleware.Session(c)
	out, err := ctrl.Login(c.Request.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, out)
	case errors.Is(err, session.ErrMissingCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": session.MsgFillAllFields})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": session.MsgBadCredentials})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "Login interrupted", "state": out.State})
	default:
		log.Printf("ERROR: Login failed for session %s: %v", ctrl.ID(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
	}
}

func (h *SessionHandlers) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.Session(c).Logout(c.Request.Context()))
}

// End discards the session and clears its cookie.
func (h *SessionHandlers) End(c *gin.Context) {
	ctrl := middleware.Session(c)
	if err := h.Sessions.End(ctrl.ID()); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		log.Printf("ERROR: Ending session %s: %v", ctrl.ID(), err)
	}
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "Session ended"})
}
