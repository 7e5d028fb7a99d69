package routes

import (
	"github.com/gin-gonic/gin"

	"classnotex/internal/interfaces/http/handlers"
)

type UsageRouteConfig struct {
	UsageHandler *handlers.UsageHandler
}

func SetupUsageRoutes(api *gin.RouterGroup, config *UsageRouteConfig) {
	me := api.Group("/me")
	{
		me.GET("/usage", config.UsageHandler.GetMyUsage)
		me.POST("/server-sessions", config.UsageHandler.RecordServerSession)
	}
}
