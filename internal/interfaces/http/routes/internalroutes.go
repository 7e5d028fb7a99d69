package routes

import (
	"github.com/gin-gonic/gin"

	"classnotex/internal/interfaces/http/handlers"
)

type InternalRouteConfig struct {
	TaskHandler *handlers.TaskCallbackHandler
}

// SetupInternalRoutes registers the worker-facing callback endpoints.
// These sit behind the internal token middleware, not the account context.
func SetupInternalRoutes(internal *gin.RouterGroup, config *InternalRouteConfig) {
	tasks := internal.Group("/tasks")
	{
		tasks.POST("/complete", config.TaskHandler.CompleteTask)
		tasks.POST("/progress", config.TaskHandler.ReportProgress)
	}
}
