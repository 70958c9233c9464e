package models

import (
	"gorm.io/gorm"
)

// SharingPreference is a user's per-group, per-festival opt-in. Position
// reports are rejected unless the user has at least one row with
// SharingEnabled for the festival, and proximity results only cross
// groups where both sides have it enabled.
type SharingPreference struct {
	gorm.Model
	UserID     uint `json:"user_id" gorm:"uniqueIndex:idx_pref_user_group_festival"`
	GroupID    uint `json:"group_id" gorm:"uniqueIndex:idx_pref_user_group_festival"`
	FestivalID uint `json:"festival_id" gorm:"uniqueIndex:idx_pref_user_group_festival"`

	SharingEnabled       bool `json:"sharing_enabled"`
	AutoEnableOnCheckin  bool `json:"auto_enable_on_checkin"`
	NotificationsEnabled bool `json:"notifications_enabled" gorm:"default:true"`
}
