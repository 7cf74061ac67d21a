package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/dgnotes/internal/app"
	"github.com/charlesng35/dgnotes/internal/handlers"
	"github.com/charlesng35/dgnotes/internal/share"
)

func registerShareRoutes(r *gin.Engine, cfg *app.Config, svc Services) {
	route := cfg.Share.Route
	if route == "" {
		route = share.DefaultRoute
	}
	r.POST(route, svc.Receiver.Handle)
}

func registerShareAPIRoutes(api *gin.RouterGroup, cfg *app.Config, svc Services) {
	trigger := cfg.Share.TriggerParam
	if trigger == "" {
		trigger = share.DefaultTriggerParam
	}
	handler := handlers.NewShareHandler(svc.Page, trigger)

	group := api.Group("/share")
	group.POST("/collect", handler.Collect)
	group.POST("/launch", handler.Launch)
}
