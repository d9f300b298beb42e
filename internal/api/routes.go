package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRoutes registers every API route on the router.
func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.Use(cors.Default())

	api := router.Group("/api")
	{
		api.GET("/health", handler.GetHealth)
		api.GET("/properties/pending-review", handler.GetPendingReview)
		api.GET("/runs/status", handler.GetRunStatus)
		api.POST("/runs/search", handler.TriggerSearch)
		api.POST("/runs/geofence", handler.TriggerGeofence)
	}
}
