package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/predictprotocol/walletauth/service"
)

// RouterConfig tunes optional router features.
type RouterConfig struct {
	Metrics bool
}

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, cfg ...RouterConfig) *gin.Engine {
	rc := RouterConfig{Metrics: true}
	if len(cfg) > 0 {
		rc = cfg[0]
	}

	router := gin.Default()

	handlers := NewAuthHandlers(authService)

	router.GET("/api/healthz", handlers.Healthz)
	if rc.Metrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	auth := router.Group("/api/auth")
	{
		auth.GET("/nonce", handlers.Nonce)
		auth.POST("/nonce", handlers.Nonce)
		auth.POST("/verify", handlers.Verify)
		auth.POST("/refresh", handlers.Refresh)
	}

	authed := router.Group("/api/auth")
	authed.Use(AuthMiddleware(authService))
	{
		authed.POST("/logout", handlers.Logout)

		authed.GET("/me", RequireExistingUser(authService), handlers.Me)
	}

	return router
}
