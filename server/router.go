package server

import (
	"net/http"
	"time"

	httpHandler "news-social/interfaces/http"
	"news-social/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the router mounts. Nil optional handlers
// leave their routes unregistered.
type Handlers struct {
	Social        httpHandler.ISocialHandler
	Settings      httpHandler.ISettingsHandler
	RateLimits    httpHandler.IRateLimitHandler
	Tokens        httpHandler.ITokenHandler
	Health        httpHandler.IHealthHandler
	FacebookOAuth httpHandler.IFacebookOAuthHandler
	Stream        gin.HandlerFunc
	Metrics       http.Handler
	HTTPMetrics   gin.HandlerFunc
}

type RouterConfig struct {
	SecretKey    string
	AllowOrigins []string
}

func InitiateRouter(h Handlers, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	if h.HTTPMetrics != nil {
		router.Use(h.HTTPMetrics)
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", httpHandler.ActorHeader, middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", h.Health.Healthz)
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	// OAuth redirects arrive from the provider without our bearer token.
	if h.FacebookOAuth != nil {
		router.GET("/auth/facebook", h.FacebookOAuth.GetAuthURL)
		router.GET("/auth/facebook/callback", h.FacebookOAuth.Callback)
	}

	api := router.Group("/api/social")
	api.Use(middleware.Auth(cfg.SecretKey))
	{
		api.POST("/autopost", h.Social.AutoPost)
		api.GET("/platforms", h.Social.Platforms)
		api.GET("/posts", h.Social.History)
		api.DELETE("/posts/:platform/:postId", h.Social.DeletePost)

		api.GET("/settings", h.Settings.Get)
		api.PUT("/settings", h.Settings.Update)

		api.GET("/ratelimits", h.RateLimits.List)
		api.POST("/ratelimits/:platform/reset", h.RateLimits.Reset)

		api.POST("/tokens/check", h.Tokens.Check)
		api.GET("/tokens/:platform/status", h.Tokens.Status)
		api.GET("/tokens/:platform/info", h.Tokens.Info)
		api.POST("/tokens/:platform/refresh", h.Tokens.Refresh)

		if h.FacebookOAuth != nil {
			api.GET("/facebook/status", h.FacebookOAuth.Status)
		}
		if h.Stream != nil {
			api.GET("/stream", h.Stream)
		}
	}

	return router
}
