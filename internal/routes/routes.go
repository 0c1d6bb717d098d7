package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"careplan-server/internal/handlers"
	"careplan-server/internal/llm"
)

// APIVersion is reported by the liveness endpoint.
const APIVersion = "1.0.0"

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, generator llm.Generator) {
	carePlanHandler := handlers.NewCarePlanHandler(generator)

	api := router.Group("/api")
	{
		api.POST("/generate-careplan", carePlanHandler.GenerateCarePlan)
		api.POST("/submit-pharmacist-feedback", carePlanHandler.SubmitPharmacistFeedback)
		api.POST("/regenerate-careplan-with-feedback", carePlanHandler.RegenerateCarePlan)
	}

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Health Planner API is running",
			"version": APIVersion,
		})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
}
