package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fest_radar/internal/location"
	"fest_radar/internal/middleware"
	"fest_radar/internal/models"
)

// LocationService is the slice of the location subsystem the HTTP
// surface needs; tests substitute a mock.
type LocationService interface {
	ReportPosition(userID, festivalID uint, report location.PositionReport) (*models.LocationSession, []string, error)
	StopSharing(userID, festivalID uint) error
	Nearby(callerID, festivalID uint, radiusMeters float64) (*location.NearbyReport, error)
	SetPreference(userID, groupID, festivalID uint, update location.PreferenceUpdate) (*models.SharingPreference, error)
	Preferences(userID, festivalID uint) ([]models.SharingPreference, error)
}

type LocationController struct {
	svc LocationService
}

func NewLocationController(svc LocationService) *LocationController {
	return &LocationController{svc: svc}
}

// UpdateLocation ingests one position report for the festival.
func (ctl *LocationController) UpdateLocation(c *gin.Context) {
	festivalID, ok := festivalParam(c)
	if !ok {
		return
	}
	userID := middleware.CurrentUserID(c)

	var report location.PositionReport
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location payload: " + err.Error()})
		return
	}

	session, sharingGroups, err := ctl.svc.ReportPosition(userID, festivalID, report)
	if err != nil {
		respondLocationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":        session,
		"sharing_groups": sharingGroups,
	})
}

// GetNearby returns visible attendees within the requested radius.
func (ctl *LocationController) GetNearby(c *gin.Context) {
	festivalID, ok := festivalParam(c)
	if !ok {
		return
	}
	userID := middleware.CurrentUserID(c)

	var radius float64
	if raw := c.Query("radius"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius", "field": "radius"})
			return
		}
		radius = parsed
	}

	report, err := ctl.svc.Nearby(userID, festivalID, radius)
	if err != nil {
		respondLocationError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// StopSharing expires the caller's session; idempotent.
func (ctl *LocationController) StopSharing(c *gin.Context) {
	festivalID, ok := festivalParam(c)
	if !ok {
		return
	}
	userID := middleware.CurrentUserID(c)

	if err := ctl.svc.StopSharing(userID, festivalID); err != nil {
		respondLocationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetPreferences lists the caller's sharing preferences for the festival.
func (ctl *LocationController) GetPreferences(c *gin.Context) {
	festivalID, ok := festivalParam(c)
	if !ok {
		return
	}
	userID := middleware.CurrentUserID(c)

	prefs, err := ctl.svc.Preferences(userID, festivalID)
	if err != nil {
		respondLocationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": prefs})
}

// SetPreference writes the caller's opt-in for one group.
func (ctl *LocationController) SetPreference(c *gin.Context) {
	festivalID, ok := festivalParam(c)
	if !ok {
		return
	}
	groupID, err := strconv.ParseUint(c.Param("group_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id", "field": "group_id"})
		return
	}
	userID := middleware.CurrentUserID(c)

	var input struct {
		Enabled              *bool `json:"enabled" binding:"required"`
		AutoEnableOnCheckin  *bool `json:"auto_enable_on_checkin"`
		NotificationsEnabled *bool `json:"notifications_enabled"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid preference payload: " + err.Error()})
		return
	}

	pref, err := ctl.svc.SetPreference(userID, uint(groupID), festivalID, location.PreferenceUpdate{
		SharingEnabled:       *input.Enabled,
		AutoEnableOnCheckin:  input.AutoEnableOnCheckin,
		NotificationsEnabled: input.NotificationsEnabled,
	})
	if err != nil {
		respondLocationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"preference": pref})
}

func festivalParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("festival_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid festival id", "field": "festival_id"})
		return 0, false
	}
	return uint(id), true
}

// respondLocationError maps subsystem errors onto the HTTP taxonomy:
// 400 validation with field detail, 403 per distinct authorization
// case, 500 for storage trouble.
func respondLocationError(c *gin.Context, err error) {
	var vErr *location.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error(), "field": vErr.Field})
	case errors.Is(err, location.ErrSharingNotEnabled):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "code": "sharing_not_enabled"})
	case errors.Is(err, location.ErrNotGroupMember):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "code": "not_group_member"})
	default:
		logrus.WithError(err).Error("Location subsystem storage failure.")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "location sharing temporarily unavailable"})
	}
}
