// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"srplerp/internal/core/sequence"
	"srplerp/internal/infrastructure/http/v1/handlers"
	"srplerp/internal/infrastructure/http/v1/middleware"
	"srplerp/internal/infrastructure/storage/postgres"
	"srplerp/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection (for health checks)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// Generator issues SRPL identifiers
	Generator sequence.Generator
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	sequenceHandler := handlers.NewSequenceHandler(cfg.Generator)
	v1 := router.Group("/api/v1")
	{
		sequences := v1.Group("/sequences")
		{
			sequences.POST("/initialize", sequenceHandler.Initialize)
			sequences.POST("/:module/generate", sequenceHandler.Generate)
			sequences.GET("/:module/next", sequenceHandler.Preview)
		}
	}

	return router
}
