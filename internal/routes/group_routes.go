package routes

import (
	"github.com/gin-gonic/gin"

	"fest_radar/internal/controllers"
	"fest_radar/internal/middleware"
)

func GroupRoutes(r *gin.Engine) {
	groups := r.Group("/groups")
	groups.Use(middleware.RequireAuth())
	{
		groups.POST("/", controllers.CreateGroup)
		groups.GET("/mine", controllers.MyGroups)
		groups.POST("/:id/join", controllers.JoinGroup)
		groups.DELETE("/:id/leave", controllers.LeaveGroup)
		groups.GET("/:id/members", controllers.GroupMembers)
	}
}
