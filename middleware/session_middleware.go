package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"h2oclear/api/session"
	"h2oclear/api/utils"
)

const (
	SessionCookie = "session_token"
	sessionKey    = "session"
)

// SessionRequired resolves the session named by the token cookie (or an
// Authorization bearer header) and stores its controller on the context.
func SessionRequired(tokens *utils.TokenIssuer, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(SessionCookie)
		if err != nil {
			tokenString = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No session token provided"})
			return
		}

		claims, err := tokens.ValidateJWT(tokenString)
		if err != nil {
			log.Printf("SessionRequired: invalid token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired session token"})
			return
		}

		ctrl, err := sessions.Get(claims.SessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Session has ended"})
			return
		}

		c.Set(sessionKey, ctrl)
		c.Next()
	}
}

// Session returns the controller stored by SessionRequired.
func Session(c *gin.Context) *session.Controller {
	return c.MustGet(sessionKey).(*session.Controller)
}

// DashboardRequired refuses dashboard data to a session that is not logged in.
func DashboardRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Session(c).State().IsLoggedIn {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    session.MsgLoginRequired,
				"redirect": "login",
			})
			return
		}
		c.Next()
	}
}

// APIKeyRequired guards operator administration with the X-API-KEY header.
// An empty key disables the guarded routes.
func APIKeyRequired(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		given := c.GetHeader("X-API-KEY")
		if key == "" || subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API key"})
			return
		}
		c.Next()
	}
}
