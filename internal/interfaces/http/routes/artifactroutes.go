package routes

import (
	"github.com/gin-gonic/gin"

	"classnotex/internal/interfaces/http/handlers"
)

type ArtifactRouteConfig struct {
	ArtifactHandler *handlers.ArtifactHandler
}

func SetupArtifactRoutes(api *gin.RouterGroup, config *ArtifactRouteConfig) {
	api.GET("/sessions/:id/artifacts/:type", config.ArtifactHandler.GetArtifact)
}
