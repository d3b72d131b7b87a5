package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"chat-realtime/internal/models"
	"chat-realtime/internal/utils"

	"github.com/gin-gonic/gin"
)

// PresenceReader answers presence queries from the live registry.
type PresenceReader interface {
	IsOnline(userID uint) bool
	ConnectionCount(userID uint) int
}

// PresenceLookup answers presence from the shared mirror, which also sees
// users connected to other nodes.
type PresenceLookup interface {
	IsUserOnline(ctx context.Context, userID uint) (bool, error)
}

type PresenceHandler struct {
	presence PresenceReader
	mirror   PresenceLookup
}

// NewPresenceHandler builds the handler. mirror may be nil.
func NewPresenceHandler(presence PresenceReader, mirror PresenceLookup) *PresenceHandler {
	return &PresenceHandler{presence: presence, mirror: mirror}
}

// GetUserPresence godoc
// @Summary Get a user's presence
// @Description Whether the user has a live connection. connections counts only this server's connections; the shared presence mirror is consulted when there are none here.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.PresenceResponse
// @Failure 400 {object} models.ErrorResponse "Invalid user id"
// @Failure 401 {object} models.ErrorResponse "Unauthorized - invalid or missing token"
// @Router /users/{id}/presence [get]
func (h *PresenceHandler) GetUserPresence(c *gin.Context) {
	userID, err := utils.StringToUint(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Code: http.StatusBadRequest, Message: "Invalid user ID"})
		return
	}
	resp := models.PresenceResponse{
		UserID:      userID,
		Online:      h.presence.IsOnline(userID),
		Connections: h.presence.ConnectionCount(userID),
	}
	if !resp.Online && h.mirror != nil {
		online, err := h.mirror.IsUserOnline(c.Request.Context(), userID)
		if err != nil {
			// Local presence is authoritative for this node.
			slog.Warn("Presence mirror lookup failed", "userID", userID, "error", err)
		} else {
			resp.Online = online
		}
	}
	c.JSON(http.StatusOK, resp)
}
