package routes

import (
	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"

	"fest_radar/internal/config"
	"fest_radar/internal/controllers"
	"fest_radar/internal/location"
	"fest_radar/internal/notify"
	"fest_radar/internal/repositories"
)

// SetupRouter wires the repositories, the location service and the
// notification dispatcher over the shared DB handle and registers all
// routes. config.InitDB must have run.
func SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(ginlog.SetLogger())
	r.Use(gin.Recovery())

	sessions := repositories.NewSessionRepository(config.DB)
	prefs := repositories.NewPreferenceRepository(config.DB)
	groups := repositories.NewGroupRepository(config.DB)
	users := repositories.NewUserRepository(config.DB)
	markers := repositories.NewMarkerRepository(config.DB)

	dispatcher := notify.NewDispatcher(markers, groups, prefs, users, nil)
	svc := location.NewService(sessions, prefs, groups, users, dispatcher)

	locationCtl := controllers.NewLocationController(svc)
	liveCtl := controllers.NewLiveController(svc, prefs)

	AuthRoutes(r)
	FestivalRoutes(r)
	GroupRoutes(r)
	LocationRoutes(r, locationCtl)
	WebSocketRoutes(r, liveCtl)

	return r
}
