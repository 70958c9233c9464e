package repositories

import (
	"gorm.io/gorm"

	"fest_radar/internal/models"
)

// GroupRepository is the roster lookup the location subsystem consumes.
// Group CRUD itself lives in the controllers; the subsystem only ever
// asks membership questions.
type GroupRepository interface {
	IsMember(groupID, userID uint) (bool, error)
	MemberIDs(groupID uint) ([]uint, error)
	// NamesByID resolves group display names for proximity results.
	NamesByID(ids []uint) (map[uint]string, error)
}

type groupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) IsMember(groupID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.GroupMembership{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *groupRepository) MemberIDs(groupID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.GroupMembership{}).
		Where("group_id = ?", groupID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *groupRepository) NamesByID(ids []uint) (map[uint]string, error) {
	names := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var groups []models.Group
	if err := r.db.Where("id IN ?", ids).Find(&groups).Error; err != nil {
		return nil, err
	}
	for _, g := range groups {
		names[g.ID] = g.Name
	}
	return names, nil
}
