package routes

import (
	"github.com/gin-gonic/gin"

	"fest_radar/internal/controllers"
	"fest_radar/internal/middleware"
)

func FestivalRoutes(r *gin.Engine) {
	festivals := r.Group("/festivals")
	{
		festivals.GET("/", controllers.ListFestivals)
		festivals.GET("/:id", controllers.GetFestival)
		festivals.POST("/", middleware.RequireAuth(), controllers.CreateFestival)
	}
}
