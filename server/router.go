package server

import (
	"time"

	"slack-connect/infrastructure/metrics"
	"slack-connect/infrastructure/realtime"
	httpHandler "slack-connect/interfaces/http"
	"slack-connect/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	AllowOrigins []string
	// SecretKey enables bearer auth on /api/messages when set.
	SecretKey string
}

func InitiateRouter(
	cfg RouterConfig,
	slackAuthHandler httpHandler.ISlackAuthHandler,
	messageHandler httpHandler.IMessageHandler,
	healthHandler httpHandler.IHealthHandler,
	hub *realtime.Hub,
	mt *metrics.Metrics,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	corsConfig := cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))
	if mt != nil {
		router.Use(metrics.Middleware(mt))
		router.GET("/metrics", gin.WrapH(mt.Handler()))
	}

	router.GET("/healthz", healthHandler.Healthz)

	api := router.Group("api")

	// Slack redirects the browser here, so the OAuth pair stays open.
	auth := api.Group("/auth")
	{
		auth.GET("/slack", slackAuthHandler.Authorize)
		auth.GET("/slack/callback", slackAuthHandler.Callback)
	}

	workspaces := api.Group("/auth")
	workspaces.Use(middleware.Auth(cfg.SecretKey))
	{
		workspaces.GET("/workspaces", slackAuthHandler.ListWorkspaces)
		workspaces.DELETE("/workspace/:id", slackAuthHandler.Disconnect)
	}

	messages := api.Group("/messages")
	messages.Use(middleware.Auth(cfg.SecretKey))
	{
		messages.GET("/channels/:workspaceId", messageHandler.ListChannels)
		messages.POST("/send", messageHandler.Send)
		messages.POST("/schedule", messageHandler.Schedule)
		messages.GET("/scheduled", messageHandler.ListScheduled)
		messages.DELETE("/scheduled/:id", messageHandler.Cancel)
		messages.GET("/scheduled/:id/events", messageHandler.Events)
		messages.POST("/scheduler/run", messageHandler.RunScheduler)
		if hub != nil {
			messages.GET("/stream", hub.Serve)
		}
	}

	return router
}
