package controllers

import (
	"encoding/binary"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fest_radar/internal/config"
	"fest_radar/internal/models"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// FestivalResponse mirrors models.Festival but carries the boundary as
// a GeoJSON string for API output.
type FestivalResponse struct {
	ID        uint           `json:"ID"`
	CreatedAt time.Time      `json:"CreatedAt"`
	UpdatedAt time.Time      `json:"UpdatedAt"`
	DeletedAt gorm.DeletedAt `json:"DeletedAt,omitempty"`
	Name      string         `json:"name"`
	Venue     string         `json:"venue"`
	StartsAt  time.Time      `json:"starts_at"`
	EndsAt    time.Time      `json:"ends_at"`
	Boundary  string         `json:"boundary,omitempty"`
}

func toFestivalResponse(festival models.Festival) FestivalResponse {
	jsonGeom, _ := convertWKBToGeoJSON(festival.Boundary)
	return FestivalResponse{
		ID:        festival.ID,
		CreatedAt: festival.CreatedAt,
		UpdatedAt: festival.UpdatedAt,
		DeletedAt: festival.DeletedAt,
		Name:      festival.Name,
		Venue:     festival.Venue,
		StartsAt:  festival.StartsAt,
		EndsAt:    festival.EndsAt,
		Boundary:  jsonGeom,
	}
}

// parseAndConvertGeometry parses a GeoJSON string into a geom.T and returns WKB bytes
func parseAndConvertGeometry(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	var g geom.T
	err := gjson.Unmarshal([]byte(raw), &g)
	if err != nil {
		return nil, err
	}
	return wkb.Marshal(g, binary.LittleEndian)
}

// convertWKBToGeoJSON converts WKB bytes into a GeoJSON string
func convertWKBToGeoJSON(wkbBytes []byte) (string, error) {
	if len(wkbBytes) == 0 {
		return "", nil
	}
	g, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		return "", err
	}
	b, err := gjson.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CreateFestival registers a festival, optionally with a GeoJSON
// grounds outline.
func CreateFestival(c *gin.Context) {
	var input struct {
		Name     string    `json:"name" binding:"required"`
		Venue    string    `json:"venue"`
		StartsAt time.Time `json:"starts_at"`
		EndsAt   time.Time `json:"ends_at"`
		Boundary string    `json:"boundary"` // GeoJSON string
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	boundary, err := parseAndConvertGeometry(input.Boundary)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid boundary geometry: " + err.Error()})
		return
	}

	festival := models.Festival{
		Name:     input.Name,
		Venue:    input.Venue,
		StartsAt: input.StartsAt,
		EndsAt:   input.EndsAt,
		Boundary: boundary,
	}
	if err := config.DB.Create(&festival).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create festival: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"festival": toFestivalResponse(festival)})
}

// GetFestival retrieves a festival by ID
func GetFestival(c *gin.Context) {
	id := c.Param("id")
	var festival models.Festival
	if err := config.DB.First(&festival, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Festival not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"festival": toFestivalResponse(festival)})
}

// ListFestivals lists all festivals
func ListFestivals(c *gin.Context) {
	var festivals []models.Festival
	if err := config.DB.Order("starts_at asc").Find(&festivals).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch festivals"})
		return
	}

	responses := make([]FestivalResponse, 0, len(festivals))
	for _, festival := range festivals {
		responses = append(responses, toFestivalResponse(festival))
	}
	c.JSON(http.StatusOK, gin.H{"data": responses})
}
