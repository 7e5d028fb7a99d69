// Package routes registers the HTTP route groups.
package routes

import (
	"github.com/gin-gonic/gin"

	"classnotex/internal/interfaces/http/handlers"
)

type JobRouteConfig struct {
	JobHandler *handlers.JobHandler
}

func SetupJobRoutes(api *gin.RouterGroup, config *JobRouteConfig) {
	jobs := api.Group("/jobs")
	{
		jobs.POST("", config.JobHandler.SubmitJob)
		jobs.GET("/:id", config.JobHandler.GetJob)
	}

	api.GET("/sessions/:id/jobs", config.JobHandler.ListSessionJobs)
}
