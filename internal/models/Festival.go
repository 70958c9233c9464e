// internal/models/festival.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Festival is the event instance all location sharing is scoped to.
// Groups, preferences and sessions reference a festival by ID.
type Festival struct {
	gorm.Model

	Name     string    `json:"name" binding:"required"`
	Venue    string    `json:"venue"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`

	// Festival grounds outline, stored as WKB (SRID 4326).
	// Provided and served as GeoJSON at the API layer.
	Boundary []byte `gorm:"type:bytea" json:"-"`
}
