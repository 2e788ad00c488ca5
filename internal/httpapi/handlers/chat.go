package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/suPer8Hu/edge-chat-bridge/internal/common"
	"github.com/suPer8Hu/edge-chat-bridge/internal/transport"
)

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true, "session_id": h.Ctrl.Session()})
}

// CreateSession provisions a fresh session on the assistant backend and
// makes it the active one.
func (h *Handler) CreateSession(c *gin.Context) {
	id, err := h.Ctrl.CreateSession(c.Request.Context())
	if err != nil {
		common.Fail(c, http.StatusBadGateway, 50201, "failed to create session")
		return
	}
	common.OK(c, gin.H{"id": id})
}

func (h *Handler) ListSessions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	sessions, err := h.Repo.ListSessions(c.Request.Context(), limit)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list sessions")
		return
	}
	common.OK(c, gin.H{
		"sessions":   sessions,
		"current_id": h.Ctrl.Session(),
	})
}

// SelectSession switches the active session. Any in-flight assistant
// turn is finalized under the old session before the switch takes effect.
func (h *Handler) SelectSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	if _, err := h.Repo.GetSessionBySessionID(c.Request.Context(), sessionID); err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40004, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	if err := h.Ctrl.SelectSession(c.Request.Context(), sessionID); err != nil {
		common.Fail(c, http.StatusBadRequest, 40002, "failed to select session")
		return
	}
	common.OK(c, gin.H{"session_id": sessionID})
}

func (h *Handler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	if err := h.Repo.DeleteSession(c.Request.Context(), sessionID); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to delete session")
		return
	}
	common.OK(c, gin.H{"deleted": true, "session_id": sessionID})
}

func (h *Handler) ListMessages(c *gin.Context) {
	sessionID := c.Param("session_id")

	limit, _ := strconv.Atoi(c.Query("limit"))
	var beforeID uint64
	if v := c.Query("before_id"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			beforeID = n
		}
	}

	msgs, err := h.Repo.ListMessages(c.Request.Context(), sessionID, limit, beforeID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list messages")
		return
	}

	var nextBeforeID uint64
	if len(msgs) > 0 {
		nextBeforeID = msgs[len(msgs)-1].ID
	}

	common.OK(c, gin.H{
		"messages":       msgs,
		"next_before_id": nextBeforeID,
	})
}

type sendMessageReq struct {
	Message   string                 `json:"message" binding:"required"`
	SessionID string                 `json:"session_id"`
	Images    []transport.Attachment `json:"images"`
}

// SendMessage forwards a user message to the assistant backend. On
// failure nothing has been sent, so the client keeps its input and can
// retry.
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	if req.SessionID != "" && req.SessionID != h.Ctrl.Session() {
		if err := h.Ctrl.SelectSession(c.Request.Context(), req.SessionID); err != nil {
			common.Fail(c, http.StatusBadRequest, 40002, "failed to select session")
			return
		}
	}

	if err := h.Ctrl.Send(c.Request.Context(), req.Message, req.Images); err != nil {
		common.Fail(c, http.StatusBadGateway, 50202, "failed to send message")
		return
	}
	common.OK(c, gin.H{"session_id": h.Ctrl.Session()})
}

// GetDeviceState serves the latest cached telemetry for a device, the
// data source widgets poll.
func (h *Handler) GetDeviceState(c *gin.Context) {
	deviceID := c.Param("device_id")

	state, err := h.Redis.DeviceState(c.Request.Context(), deviceID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to read device state")
		return
	}
	if state == nil {
		common.Fail(c, http.StatusNotFound, 40005, "device state not found")
		return
	}
	c.Data(http.StatusOK, "application/json", state)
}
