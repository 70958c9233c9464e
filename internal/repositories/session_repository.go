package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fest_radar/internal/models"
)

// SessionRepository owns LocationSession rows. All writes are atomic
// conflict-resolving statements so two near-simultaneous reports from
// the same user never create two rows; last write wins in arrival
// order at the database.
type SessionRepository interface {
	// Upsert inserts or overwrites the single row keyed by
	// (user_id, festival_id), resetting status and expiry.
	Upsert(session *models.LocationSession) error
	// Active returns the caller's unexpired session, or nil.
	Active(userID, festivalID uint) (*models.LocationSession, error)
	// ActiveByUsers returns unexpired sessions for the given users.
	ActiveByUsers(festivalID uint, userIDs []uint) ([]models.LocationSession, error)
	// Expire marks any active session for the key as expired.
	// Idempotent: expiring an already-expired or absent session is a no-op.
	Expire(userID, festivalID uint) error
	// SweepExpired flips rows past their TTL to expired. Store hygiene
	// only; readers filter on expires_at themselves.
	SweepExpired() (int64, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Upsert(session *models.LocationSession) error {
	session.Status = models.SessionActive
	session.ExpiresAt = time.Now().Add(models.SessionTTL)

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "festival_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"latitude", "longitude",
			"accuracy", "heading", "speed", "altitude",
			"status", "expires_at", "updated_at",
		}),
	}).Create(session).Error
}

func (r *sessionRepository) Active(userID, festivalID uint) (*models.LocationSession, error) {
	var session models.LocationSession
	err := r.db.
		Where("user_id = ? AND festival_id = ? AND status = ? AND expires_at > ?",
			userID, festivalID, models.SessionActive, time.Now()).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) ActiveByUsers(festivalID uint, userIDs []uint) ([]models.LocationSession, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var sessions []models.LocationSession
	err := r.db.
		Where("festival_id = ? AND user_id IN ? AND status = ? AND expires_at > ?",
			festivalID, userIDs, models.SessionActive, time.Now()).
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepository) Expire(userID, festivalID uint) error {
	return r.db.Model(&models.LocationSession{}).
		Where("user_id = ? AND festival_id = ? AND status = ?",
			userID, festivalID, models.SessionActive).
		Update("status", models.SessionExpired).Error
}

func (r *sessionRepository) SweepExpired() (int64, error) {
	result := r.db.Model(&models.LocationSession{}).
		Where("status = ? AND expires_at <= ?", models.SessionActive, time.Now()).
		Update("status", models.SessionExpired)
	return result.RowsAffected, result.Error
}
