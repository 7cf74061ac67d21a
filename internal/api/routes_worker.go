package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/dgnotes/internal/handlers"
	"github.com/charlesng35/dgnotes/internal/realtime"
)

func registerWorkerRoutes(r *gin.Engine, svc Services) {
	handler := handlers.NewWorkerHandler(svc.Registration)

	control := r.Group("/__worker")
	control.POST("/message", handler.Message)
	control.GET("/status", handler.Status)

	if svc.Hub != nil {
		stream := handlers.NewRealtimeHandler(svc.Hub, realtime.StreamWorker)
		r.GET("/ws/worker", stream.Stream)
	}
}
