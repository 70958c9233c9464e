package routes

import (
	"github.com/gin-gonic/gin"

	"fest_radar/internal/controllers"
)

func WebSocketRoutes(r *gin.Engine, ctl *controllers.LiveController) {
	// Authentication happens inside the handler via the token query
	// parameter; browsers cannot set headers on websocket upgrades.
	r.GET("/ws/live", ctl.HandleLiveWebSocket)
}
