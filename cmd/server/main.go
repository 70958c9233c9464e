package main

import (
	"log"
	"net/http"
	"time"

	"fest_radar/internal/config"
	"fest_radar/internal/logger"
	"fest_radar/internal/middleware"
	"fest_radar/internal/repositories"
	"fest_radar/internal/routes"

	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize structured logging to file
	logger.Setup()

	// Connect to the database
	config.InitDB()

	// Setup Gin router
	r := routes.SetupRouter()

	// Lazy session sweep: store hygiene only, readers never depend on
	// it having run.
	go sweepSessions(repositories.NewSessionRepository(config.DB))

	// Wrap with CORS
	handler := middleware.EnableCORS(r)

	log.Println("🚀 Server running at :8080")
	log.Fatal(http.ListenAndServe("0.0.0.0:8080", handler))
}

func sweepSessions(sessions repositories.SessionRepository) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		swept, err := sessions.SweepExpired()
		if err != nil {
			logrus.WithError(err).Warn("Session sweep failed.")
			continue
		}
		if swept > 0 {
			logrus.WithField("sessions", swept).Debug("Swept stale location sessions.")
		}
	}
}
