package handlers

import (
	"log/slog"
	"net/http"

	"chat-realtime/internal/api/middleware"
	"chat-realtime/internal/models"
	"chat-realtime/internal/websocket"
	"chat-realtime/pkg/response"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
)

type WSHandler struct {
	hub      *websocket.Hub
	upgrader *gws.Upgrader
}

func NewWSHandler(hub *websocket.Hub, upgrader *gws.Upgrader) *WSHandler {
	return &WSHandler{hub: hub, upgrader: upgrader}
}

// HandleWebSocket godoc
// @Summary WebSocket connection
// @Description Establish an authenticated WebSocket connection for real-time messaging. The bearer token is taken from the Authorization header or the `token` query parameter.
// @Tags websocket
// @Param token query string false "Bearer token for clients that cannot set headers"
// @Success 101 "Switching Protocols - WebSocket connection established"
// @Failure 401 {object} models.ErrorResponse "Missing, invalid or expired token"
// @Failure 429 {object} models.ErrorResponse "Too many handshakes"
// @Router /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Code:    http.StatusUnauthorized,
			Message: response.Message(response.CodeUnauthenticated),
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "userID", user.ID, "error", err)
		return
	}
	h.hub.Serve(conn, user.Summary())
}
