package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/dgnotes/internal/handlers"
)

func registerPageRoutes(api *gin.RouterGroup, svc Services) {
	if svc.Catalog != nil {
		catalog := handlers.NewCatalogHandler(svc.Catalog)
		api.GET("/catalog/discs", catalog.Discs)
		api.GET("/catalog/categories", catalog.Categories)
	}

	if svc.Dashboard != nil {
		dashboard := handlers.NewDashboardHandler(svc.Dashboard)
		api.GET("/dashboard/:userID", dashboard.Stats)
		api.PATCH("/dashboard/:userID", dashboard.Update)
	}
}
