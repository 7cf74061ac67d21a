package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/dgnotes/internal/handlers"
)

func registerCacheRoutes(api *gin.RouterGroup, svc Services) {
	handler := handlers.NewCacheHandler(svc.Persistent, svc.TTL)

	persistent := api.Group("/cache/persistent")
	{
		persistent.GET("/:key", handler.GetPersistent)
		persistent.PUT("/:key", handler.PutPersistent)
		persistent.DELETE("/:key", handler.DeletePersistent)
	}

	ttl := api.Group("/cache/ttl")
	{
		ttl.GET("/:key", handler.GetTTL)
		ttl.PUT("/:key", handler.PutTTL)
		ttl.PATCH("/:key", handler.PatchTTL)
	}
}
