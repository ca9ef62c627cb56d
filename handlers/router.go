package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"h2oclear/api/middleware"
	"h2oclear/api/session"
	"h2oclear/api/store"
	"h2oclear/api/utils"
)

// RouterConfig carries everything the routes depend on.
type RouterConfig struct {
	Sessions       *session.Manager
	Tokens         *utils.TokenIssuer
	Archive        store.Archive
	Operators      OperatorCreator // nil unless AUTH_MODE=postgres
	OperatorAPIKey string
	FrontendOrigin string
	SecureCookie   bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(), middleware.CORSMiddleware(cfg.FrontendOrigin))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": cfg.Sessions.Len()})
	})

	sessionHandlers := NewSessionHandlers(cfg.Sessions, cfg.Tokens, cfg.SecureCookie)
	dashboardHandlers := NewDashboardHandlers(cfg.Archive)

	api := r.Group("/api")
	{
		api.POST("/session", sessionHandlers.Create)

		protected := api.Group("/")
		protected.Use(middleware.SessionRequired(cfg.Tokens, cfg.Sessions))
		{
			protected.GET("/session", sessionHandlers.State)
			protected.DELETE("/session", sessionHandlers.End)
			protected.GET("/session/view", sessionHandlers.View)
			protected.GET("/session/stream", sessionHandlers.Stream)
			protected.POST("/session/navigate", sessionHandlers.Navigate)
			protected.POST("/session/keys", sessionHandlers.Key)
			protected.POST("/session/login", sessionHandlers.Login)
			protected.POST("/session/logout", sessionHandlers.Logout)

			protected.POST("/device/connect", Connect)
			protected.POST("/device/disconnect", Disconnect)

			dashboard := protected.Group("/dashboard")
			dashboard.Use(middleware.DashboardRequired())
			{
				dashboard.GET("/detections", dashboardHandlers.Detections)
				dashboard.GET("/charts", dashboardHandlers.Charts)
				dashboard.GET("/export", dashboardHandlers.Export)
				dashboard.GET("/stats/detection-counts", dashboardHandlers.DetectionCounts)
			}
		}

		if cfg.Operators != nil {
			operatorHandlers := NewOperatorHandlers(cfg.Operators)
			api.POST("/operators", middleware.APIKeyRequired(cfg.OperatorAPIKey), operatorHandlers.Signup)
		}
	}

	return r
}
