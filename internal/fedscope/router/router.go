// Package router provides analysis service routing.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/fedscope/fedscope/internal/fedscope/handler"
)

// Register registers the analysis service routes.
func Register(engine *gin.Engine, h *handler.AnalysisHandler) {
	logger.Info("Registering analysis routes...")

	engine.GET("/healthz", h.Healthz)

	v1 := engine.Group("/v1")
	{
		analysis := v1.Group("/analysis")
		{
			analysis.POST("/query", h.Query)
			analysis.GET("/collections", h.Collections)
			analysis.GET("/stats", h.Stats)
		}
	}

	logger.Info("HTTP routes registered")
}
