package api

import (
	"github.com/gin-gonic/gin"

	"whisperd/pkg/logger"
)

// SetupRoutes wires the HTTP surface described in spec.md §6.
func SetupRoutes(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	logger.SetGinOutput()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinLogger())

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/transcribe", handler.Transcribe)
		v1.POST("/translate", handler.Translate)
		v1.GET("/status", handler.Status)
		v1.GET("/srt", handler.SRT)
		v1.GET("/decoder_status", handler.DecoderStatus)
		v1.GET("/decoder_status_refresh", handler.DecoderStatusRefresh)
		v1.GET("/userinfo", handler.UserInfo)
		v1.GET("/logs", handler.Logs)
	}

	return router
}
