package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fest_radar/internal/config"
	"fest_radar/internal/middleware"
	"fest_radar/internal/models"
)

// CreateGroup creates a group with the caller as owner and first member.
func CreateGroup(c *gin.Context) {
	var input struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.CurrentUserID(c)

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start transaction"})
		return
	}

	group := models.Group{
		Name:        input.Name,
		Description: input.Description,
		OwnerID:     userID,
	}
	if err := tx.Create(&group).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create group: " + err.Error()})
		return
	}

	membership := models.GroupMembership{GroupID: group.ID, UserID: userID}
	if err := tx.Create(&membership).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not add owner membership: " + err.Error()})
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not commit transaction: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"group": group})
}

// JoinGroup adds the caller to a group's roster.
func JoinGroup(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	id := c.Param("id")

	var group models.Group
	if err := config.DB.First(&group, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	var existing int64
	config.DB.Model(&models.GroupMembership{}).
		Where("group_id = ? AND user_id = ?", group.ID, userID).
		Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusOK, gin.H{"message": "Already a member"})
		return
	}

	membership := models.GroupMembership{GroupID: group.ID, UserID: userID}
	if err := config.DB.Create(&membership).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not join group: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Joined group", "group": group})
}

// LeaveGroup removes the caller from a group's roster.
func LeaveGroup(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	id := c.Param("id")

	if err := config.DB.
		Where("group_id = ? AND user_id = ?", id, userID).
		Delete(&models.GroupMembership{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not leave group"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Left group"})
}

// MyGroups lists the caller's groups.
func MyGroups(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	var groups []models.Group
	err := config.DB.
		Joins("JOIN group_memberships ON group_memberships.group_id = groups.id").
		Where("group_memberships.user_id = ? AND group_memberships.deleted_at IS NULL", userID).
		Find(&groups).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing groups: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": groups})
}

// GroupMembers lists a group's roster; members only.
func GroupMembers(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	id := c.Param("id")

	var group models.Group
	if err := config.DB.Preload("Members.User").First(&group, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	isMember := false
	for _, m := range group.Members {
		if m.UserID == userID {
			isMember = true
			break
		}
	}
	if !isMember {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this group"})
		return
	}

	members := make([]gin.H, 0, len(group.Members))
	for _, m := range group.Members {
		members = append(members, gin.H{
			"user_id": m.UserID,
			"name":    m.User.Name,
			"email":   m.User.Email,
		})
	}
	c.JSON(http.StatusOK, gin.H{"group": group.Name, "members": members})
}
