package models

import (
	"gorm.io/gorm"
)

// NotificationMarker records that a notification of a given kind was
// handled for (user, group). Rows are append-only; the dispatcher reads
// back only the trailing rate-limit window.
type NotificationMarker struct {
	gorm.Model
	UserID  uint   `json:"user_id" gorm:"index:idx_marker_user_group_kind"`
	GroupID uint   `json:"group_id" gorm:"index:idx_marker_user_group_kind"`
	Kind    string `json:"kind" gorm:"size:50;index:idx_marker_user_group_kind"`
}
