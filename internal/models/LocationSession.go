package models

import (
	"time"

	"gorm.io/gorm"
)

// Session status values. A row past ExpiresAt is treated as expired by
// every reader even while the column still says "active".
const (
	SessionActive  = "active"
	SessionExpired = "expired"
)

// SessionTTL is how long a position report stays valid without a
// refresh. Every write pushes ExpiresAt out by this much.
const SessionTTL = 4 * time.Hour

// LocationSession is the single most recent known position of a user at
// a festival. At most one row exists per (user, festival); reports are
// upserted, never appended.
type LocationSession struct {
	gorm.Model
	UserID     uint `json:"user_id" gorm:"uniqueIndex:idx_session_user_festival"`
	FestivalID uint `json:"festival_id" gorm:"uniqueIndex:idx_session_user_festival"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Optional sensor metadata from the device fix.
	Accuracy *float64 `json:"accuracy,omitempty"` // meters
	Heading  *float64 `json:"heading,omitempty"`  // degrees
	Speed    *float64 `json:"speed,omitempty"`    // m/s
	Altitude *float64 `json:"altitude,omitempty"` // meters

	Status    string    `json:"status" gorm:"index;default:active"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"`
}

// Expired reports whether the session should be invisible to readers,
// either explicitly stopped or past its TTL.
func (s *LocationSession) Expired(now time.Time) bool {
	return s.Status != SessionActive || now.After(s.ExpiresAt)
}
