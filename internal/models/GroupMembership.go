package models

import (
	"gorm.io/gorm"
)

type GroupMembership struct {
	gorm.Model
	GroupID uint `json:"group_id" gorm:"uniqueIndex:idx_membership_group_user"`
	UserID  uint `json:"user_id" gorm:"uniqueIndex:idx_membership_group_user"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
