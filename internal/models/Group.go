package models

import (
	"gorm.io/gorm"
)

// Group is a social circle of attendees. Membership gates location
// visibility: a user is only ever visible through groups both sides
// share and have enabled sharing for.
type Group struct {
	gorm.Model

	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	OwnerID     uint   `json:"owner_id" gorm:"index"`

	Members []GroupMembership `gorm:"foreignKey:GroupID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"members,omitempty"`
}
