package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/timesheet-api/internal/constants"
	"github.com/yukikurage/timesheet-api/internal/dto"
	apierrors "github.com/yukikurage/timesheet-api/internal/errors"
	"github.com/yukikurage/timesheet-api/internal/realtime"
	"github.com/yukikurage/timesheet-api/internal/services"
	"github.com/yukikurage/timesheet-api/internal/utils"
)

// RealtimeHandler serves the event stream, presence and the notification
// inbox.
type RealtimeHandler struct {
	hub      *realtime.Hub
	presence *realtime.Presence
	notifier *services.Notifier
	interval time.Duration
	log      *zap.Logger
}

// NewRealtimeHandler creates a RealtimeHandler. A zero interval falls back
// to the default heartbeat interval.
func NewRealtimeHandler(hub *realtime.Hub, presence *realtime.Presence, notifier *services.Notifier, interval time.Duration, log *zap.Logger) *RealtimeHandler {
	if interval <= 0 {
		interval = constants.HeartbeatInterval
	}
	return &RealtimeHandler{
		hub:      hub,
		presence: presence,
		notifier: notifier,
		interval: interval,
		log:      log,
	}
}

// Events streams Server-Sent Events to the caller until the client goes
// away. A ping is written every heartbeat interval and counts as presence.
func (h *RealtimeHandler) Events(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}

	client := h.hub.Register(sub.UserID)
	defer h.hub.Unregister(client.ID)
	h.heartbeat(sub.UserID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("connected", gin.H{
		"client_id":          client.ID,
		"heartbeat_interval": h.interval.Milliseconds(),
	})
	c.Writer.Flush()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, open := <-client.Events:
			if !open {
				return false
			}
			c.SSEvent(event.Type, event.Data)
			return true
		case <-ticker.C:
			h.heartbeat(sub.UserID)
			c.SSEvent("ping", gin.H{"time": time.Now().UTC()})
			return true
		}
	})
	h.log.Debug("SSE stream closed", zap.Uint64("user_id", sub.UserID), zap.String("client_id", client.ID))
}

// Heartbeat marks the caller online.
func (h *RealtimeHandler) Heartbeat(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	seen := h.heartbeat(sub.UserID)
	apierrors.Data(c, http.StatusOK, gin.H{
		"last_seen":          seen,
		"heartbeat_interval": h.interval.Milliseconds(),
	})
}

// Online lists the users seen within the online threshold.
func (h *RealtimeHandler) Online(c *gin.Context) {
	if _, ok := currentSubject(c); !ok {
		return
	}
	apierrors.Data(c, http.StatusOK, dto.PresenceResponse{OnlineUserIDs: h.presence.OnlineUsers()})
}

// heartbeat records presence and tells every client when a user comes online.
func (h *RealtimeHandler) heartbeat(userID uint64) time.Time {
	wasOnline := h.presence.IsOnline(userID)
	seen := h.presence.Heartbeat(userID)
	if !wasOnline {
		h.broadcastPresence()
	}
	return seen
}

func (h *RealtimeHandler) broadcastPresence() {
	event, err := realtime.NewEvent("presence", dto.PresenceResponse{OnlineUserIDs: h.presence.OnlineUsers()})
	if err != nil {
		h.log.Warn("failed to encode presence event", zap.Error(err))
		return
	}
	h.hub.Broadcast(event)
}

// ListNotifications returns the caller's notifications, newest first.
// Query: unread=true, page, limit.
func (h *RealtimeHandler) ListNotifications(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	list, total, err := h.notifier.List(c.Request.Context(), sub.UserID, c.Query("unread") == "true", params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToNotificationListResponse(list, params.Page, params.Limit, total))
}

// MarkRead marks one of the caller's notifications as read.
func (h *RealtimeHandler) MarkRead(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.notifier.MarkRead(c.Request.Context(), sub.UserID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllRead marks every notification of the caller as read.
func (h *RealtimeHandler) MarkAllRead(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}

	if err := h.notifier.MarkAllRead(c.Request.Context(), sub.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
