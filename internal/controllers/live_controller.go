package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"fest_radar/internal/location"
	"fest_radar/internal/middleware"
	"fest_radar/internal/repositories"
)

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for development (restrict in production!)
	},
}

// liveUpdate is one accepted position report fanned out to every group
// the sharer shares with.
type liveUpdate struct {
	groupIDs []uint
	payload  map[string]interface{}
}

// liveClient serializes writes to one connection. The hub broadcast
// goroutine and the connection's own read loop both write to the same
// conn, and gorilla/websocket allows at most one concurrent writer.
type liveClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func newLiveClient(conn *websocket.Conn) *liveClient {
	return &liveClient{conn: conn}
}

func (c *liveClient) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// LiveHub tracks websocket subscribers per group and broadcasts
// accepted position reports to them.
type LiveHub struct {
	groupClients map[uint]map[*liveClient]bool
	broadcast    chan liveUpdate
	mu           sync.Mutex
}

func NewLiveHub() *LiveHub {
	hub := &LiveHub{
		groupClients: make(map[uint]map[*liveClient]bool),
		broadcast:    make(chan liveUpdate, 100),
	}
	go hub.run()
	return hub
}

func (h *LiveHub) run() {
	for update := range h.broadcast {
		h.mu.Lock()
		for _, groupID := range update.groupIDs {
			clients, exists := h.groupClients[groupID]
			if !exists {
				continue
			}
			payload := make(map[string]interface{}, len(update.payload)+1)
			for k, v := range update.payload {
				payload[k] = v
			}
			payload["group_id"] = groupID
			for client := range clients {
				if err := client.writeJSON(payload); err != nil {
					if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
						h.unregisterLocked(groupID, client)
					} else {
						logrus.WithError(err).WithField("group_id", groupID).Warn("Failed to send live update to client.")
					}
				}
			}
		}
		h.mu.Unlock()
	}
}

// Register subscribes a connection to a set of groups.
func (h *LiveHub) Register(groupIDs []uint, client *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, groupID := range groupIDs {
		if _, ok := h.groupClients[groupID]; !ok {
			h.groupClients[groupID] = make(map[*liveClient]bool)
		}
		h.groupClients[groupID][client] = true
	}
}

// Unregister removes a connection from a set of groups.
func (h *LiveHub) Unregister(groupIDs []uint, client *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, groupID := range groupIDs {
		h.unregisterLocked(groupID, client)
	}
}

func (h *LiveHub) unregisterLocked(groupID uint, client *liveClient) {
	if clients, ok := h.groupClients[groupID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.groupClients, groupID)
		}
	}
}

// Publish queues a live update for broadcast, dropping it if the
// channel is full.
func (h *LiveHub) Publish(update liveUpdate) {
	select {
	case h.broadcast <- update:
	default:
		logrus.Warn("Live broadcast channel full, dropping update.")
	}
}

type LiveController struct {
	svc   LocationService
	prefs repositories.PreferenceRepository
	hub   *LiveHub
}

func NewLiveController(svc LocationService, prefs repositories.PreferenceRepository) *LiveController {
	return &LiveController{
		svc:   svc,
		prefs: prefs,
		hub:   NewLiveHub(),
	}
}

// HandleLiveWebSocket serves the live position feed. Clients
// authenticate via a token query parameter, subscribe to the groups
// they share with for the festival, and may stream their own position
// reports; each accepted report runs through the normal ingest path and
// is then broadcast to the sharer's groups.
func (ctl *LiveController) HandleLiveWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authentication token"})
		return
	}
	claims, err := middleware.ValidateToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	userID := claims.UserID

	festivalID, err := strconv.ParseUint(c.Query("festival_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid festival_id", "field": "festival_id"})
		return
	}

	groupIDs, err := ctl.prefs.EnabledGroupIDs(userID, uint(festivalID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load sharing preferences"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection.")
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	log := logrus.WithFields(logrus.Fields{
		"conn_id":     connID,
		"user_id":     userID,
		"festival_id": festivalID,
	})
	log.Info("Live feed connection established.")

	client := newLiveClient(conn)
	ctl.hub.Register(groupIDs, client)
	defer ctl.hub.Unregister(groupIDs, client)

	for {
		messageType, p, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Info("Live feed connection closed.")
			} else {
				log.WithError(err).Error("Error reading live feed message.")
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}
		ctl.processReport(client, log, p, userID, uint(festivalID))
	}
}

// processReport ingests one streamed position report and fans the
// accepted update out to the sharer's groups.
func (ctl *LiveController) processReport(client *liveClient, log *logrus.Entry, p []byte, userID, festivalID uint) {
	var report location.PositionReport
	if err := json.Unmarshal(p, &report); err != nil {
		log.WithError(err).Warn("Invalid live position payload.")
		client.writeJSON(gin.H{"error": "invalid position payload"})
		return
	}

	session, sharingGroups, err := ctl.svc.ReportPosition(userID, festivalID, report)
	if err != nil {
		log.WithError(err).Warn("Live position report rejected.")
		client.writeJSON(gin.H{"error": err.Error()})
		return
	}

	client.writeJSON(gin.H{
		"status":         "saved",
		"sharing_groups": sharingGroups,
		"expires_at":     session.ExpiresAt,
	})

	// Broadcast goes to the groups the sharer currently enables; the
	// same set the ingest gate just validated against.
	groupIDs, err := ctl.prefs.EnabledGroupIDs(userID, festivalID)
	if err != nil {
		log.WithError(err).Warn("Could not resolve broadcast groups for live update.")
		return
	}
	ctl.hub.Publish(liveUpdate{
		groupIDs: groupIDs,
		payload: map[string]interface{}{
			"user_id":   userID,
			"latitude":  session.Latitude,
			"longitude": session.Longitude,
			"timestamp": session.UpdatedAt.Format(time.RFC3339Nano),
		},
	})
}
