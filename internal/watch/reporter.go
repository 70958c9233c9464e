package watch

import (
	"fest_radar/internal/location"
	"fest_radar/internal/models"
)

// Ingestor is the slice of the location service the reporter forwards
// into. *location.Service satisfies it.
type Ingestor interface {
	ReportPosition(userID, festivalID uint, report location.PositionReport) (*models.LocationSession, []string, error)
	StopSharing(userID, festivalID uint) error
}

// ServiceReporter binds one attendee's watch session to the ingest
// path: every fix becomes a position report for the same user and
// festival, and Stop expires that session.
type ServiceReporter struct {
	svc        Ingestor
	userID     uint
	festivalID uint
}

func NewServiceReporter(svc Ingestor, userID, festivalID uint) *ServiceReporter {
	return &ServiceReporter{svc: svc, userID: userID, festivalID: festivalID}
}

func (r *ServiceReporter) Report(p Position) error {
	_, _, err := r.svc.ReportPosition(r.userID, r.festivalID, location.PositionReport{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Accuracy:  p.Accuracy,
		Heading:   p.Heading,
		Speed:     p.Speed,
		Altitude:  p.Altitude,
	})
	return err
}

func (r *ServiceReporter) Stop() error {
	return r.svc.StopSharing(r.userID, r.festivalID)
}
