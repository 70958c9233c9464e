package repositories

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fest_radar/internal/models"
)

// PreferenceRepository owns SharingPreference rows.
type PreferenceRepository interface {
	Upsert(pref *models.SharingPreference) error
	// Get returns the row for the composite key, or nil.
	Get(userID, groupID, festivalID uint) (*models.SharingPreference, error)
	ListByUser(userID, festivalID uint) ([]models.SharingPreference, error)
	// EnabledGroupIDs lists groups the user has sharing enabled for.
	EnabledGroupIDs(userID, festivalID uint) ([]uint, error)
	// UsersSharingInGroup lists users with sharing enabled for the group.
	UsersSharingInGroup(groupID, festivalID uint) ([]uint, error)
	// UsersNotifiableInGroup lists users with notifications enabled for
	// the group.
	UsersNotifiableInGroup(groupID, festivalID uint) ([]uint, error)
}

type preferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

func (r *preferenceRepository) Upsert(pref *models.SharingPreference) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "group_id"}, {Name: "festival_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"sharing_enabled", "auto_enable_on_checkin", "notifications_enabled", "updated_at",
		}),
	}).Create(pref).Error
}

func (r *preferenceRepository) Get(userID, groupID, festivalID uint) (*models.SharingPreference, error) {
	var pref models.SharingPreference
	err := r.db.
		Where("user_id = ? AND group_id = ? AND festival_id = ?", userID, groupID, festivalID).
		First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *preferenceRepository) ListByUser(userID, festivalID uint) ([]models.SharingPreference, error) {
	var prefs []models.SharingPreference
	err := r.db.
		Where("user_id = ? AND festival_id = ?", userID, festivalID).
		Order("group_id asc").
		Find(&prefs).Error
	return prefs, err
}

func (r *preferenceRepository) EnabledGroupIDs(userID, festivalID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.SharingPreference{}).
		Where("user_id = ? AND festival_id = ? AND sharing_enabled = ?", userID, festivalID, true).
		Pluck("group_id", &ids).Error
	return ids, err
}

func (r *preferenceRepository) UsersSharingInGroup(groupID, festivalID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.SharingPreference{}).
		Where("group_id = ? AND festival_id = ? AND sharing_enabled = ?", groupID, festivalID, true).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *preferenceRepository) UsersNotifiableInGroup(groupID, festivalID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.SharingPreference{}).
		Where("group_id = ? AND festival_id = ? AND notifications_enabled = ?", groupID, festivalID, true).
		Pluck("user_id", &ids).Error
	return ids, err
}
