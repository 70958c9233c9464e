package repositories

import (
	"time"

	"gorm.io/gorm"

	"fest_radar/internal/models"
)

// MarkerRepository is the append-only notification bookkeeping log.
// The check-then-record pair is deliberately two statements; the
// dispatcher documents the resulting best-effort window.
type MarkerRepository interface {
	// SentWithin reports whether a marker for (user, group, kind) was
	// recorded inside the trailing window.
	SentWithin(userID, groupID uint, kind string, window time.Duration) (bool, error)
	Record(userID, groupID uint, kind string) error
}

type markerRepository struct {
	db *gorm.DB
}

func NewMarkerRepository(db *gorm.DB) MarkerRepository {
	return &markerRepository{db: db}
}

func (r *markerRepository) SentWithin(userID, groupID uint, kind string, window time.Duration) (bool, error) {
	var count int64
	err := r.db.Model(&models.NotificationMarker{}).
		Where("user_id = ? AND group_id = ? AND kind = ? AND created_at > ?",
			userID, groupID, kind, time.Now().Add(-window)).
		Count(&count).Error
	return count > 0, err
}

func (r *markerRepository) Record(userID, groupID uint, kind string) error {
	marker := models.NotificationMarker{
		UserID:  userID,
		GroupID: groupID,
		Kind:    kind,
	}
	return r.db.Create(&marker).Error
}
