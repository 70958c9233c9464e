package repositories

import (
	"gorm.io/gorm"

	"fest_radar/internal/models"
)

// UserRepository resolves display fields for proximity results and
// notifications.
type UserRepository interface {
	ByIDs(ids []uint) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) ByIDs(ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	err := r.db.Where("id IN ?", ids).Find(&users).Error
	return users, err
}
