package routes

import (
	"github.com/gin-gonic/gin"

	"fest_radar/internal/controllers"
	"fest_radar/internal/middleware"
)

func LocationRoutes(r *gin.Engine, ctl *controllers.LocationController) {
	loc := r.Group("/location")
	loc.Use(middleware.RequireAuth())
	{
		loc.POST("/:festival_id", ctl.UpdateLocation)
		loc.POST("/:festival_id/stop", ctl.StopSharing)
		loc.GET("/:festival_id/nearby", ctl.GetNearby)
		loc.GET("/:festival_id/preferences", ctl.GetPreferences)
		loc.PUT("/:festival_id/preferences/:group_id", ctl.SetPreference)
	}
}
