// Package router wires the batch trigger routes.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tigerroll/coffeebatch/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes.
// metricsHandler, when not nil, is served on GET /metrics.
func SetupRouter(deps *handler.Dependencies, metricsHandler http.Handler) *gin.Engine {
	batchHandler := handler.NewBatchHandler(deps)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(batchHandler.Logger()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "coffeebatch",
		})
	})
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	batch := r.Group("/batch")
	{
		batch.POST("/run/:jobName", batchHandler.RunJob)
		batch.GET("/jobs", batchHandler.ListJobs)
		batch.GET("/executions/:id", batchHandler.GetExecution)
	}

	return r
}
