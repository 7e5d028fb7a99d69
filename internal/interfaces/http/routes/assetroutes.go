package routes

import (
	"github.com/gin-gonic/gin"

	"classnotex/internal/interfaces/http/handlers"
)

type AssetRouteConfig struct {
	AssetHandler *handlers.AssetHandler
}

func SetupAssetRoutes(api *gin.RouterGroup, config *AssetRouteConfig) {
	assets := api.Group("/assets")
	{
		assets.POST("", config.AssetHandler.RegisterAudio)
		assets.POST("/:id/commit", config.AssetHandler.CommitAudio)
	}
}
