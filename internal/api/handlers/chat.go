package handlers

import (
	"errors"
	"net/http"

	"chat-realtime/internal/api/middleware"
	"chat-realtime/internal/models"
	"chat-realtime/internal/services"
	"chat-realtime/internal/utils"
	"chat-realtime/pkg/response"

	"github.com/gin-gonic/gin"
)

// ChatNotifier pushes newly created chats to live connections.
type ChatNotifier interface {
	NotifyChatCreated(chat *models.Chat)
}

type ChatHandler struct {
	chatService *services.ChatService
	notifier    ChatNotifier
}

func NewChatHandler(chatService *services.ChatService, notifier ChatNotifier) *ChatHandler {
	return &ChatHandler{chatService: chatService, notifier: notifier}
}

// GetUserChats godoc
// @Summary List the caller's chats
// @Description Chats the caller participates in, most recently active first, with the caller's unread count
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.ChatResponse
// @Failure 401 {object} models.ErrorResponse "Unauthorized - invalid or missing token"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /chats [get]
func (h *ChatHandler) GetUserChats(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)
	chats, err := h.chatService.ListChats(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to get chats",
		})
		return
	}
	c.JSON(http.StatusOK, chats)
}

// CreateChat godoc
// @Summary Create a chat
// @Description Create a chat between the caller and the listed users. Live connections of every participant join the new room and receive chat:new.
// @Tags chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateChatRequest true "Chat creation data"
// @Success 201 {object} models.ChatResponse
// @Failure 400 {object} models.ErrorResponse "Invalid input or unknown participants"
// @Failure 401 {object} models.ErrorResponse "Unauthorized - invalid or missing token"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /chats [post]
func (h *ChatHandler) CreateChat(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)

	var req models.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: response.Message(response.CodeInvalidPayload),
			Details: err.Error(),
		})
		return
	}

	chat, err := h.chatService.CreateChat(c.Request.Context(), userID, req)
	if err != nil {
		if errors.Is(err, services.ErrUnknownParticipants) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Code:    http.StatusBadRequest,
				Message: err.Error(),
			})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to create chat",
		})
		return
	}

	h.notifier.NotifyChatCreated(chat)
	c.JSON(http.StatusCreated, chat.ToResponse(userID))
}

// GetChatMessages godoc
// @Summary Get chat history
// @Description Messages of a chat, newest first. Pass nextCursor as `before` to page back.
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chat ID"
// @Param limit query int false "Page size (max 100)"
// @Param before query int false "Return messages with an id lower than this"
// @Success 200 {object} models.PaginatedMessageResponse
// @Failure 400 {object} models.ErrorResponse "Invalid chat id"
// @Failure 401 {object} models.ErrorResponse "Unauthorized - invalid or missing token"
// @Failure 404 {object} models.ErrorResponse "Chat not found or access denied"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /chats/{id}/messages [get]
func (h *ChatHandler) GetChatMessages(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)
	chatID, err := utils.StringToUint(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Code: http.StatusBadRequest, Message: "Invalid chat ID"})
		return
	}

	limit := int(utils.QueryUint(c.Query("limit"), 0))
	before := utils.QueryUint(c.Query("before"), 0)

	page, err := h.chatService.ListMessages(c.Request.Context(), userID, chatID, limit, before)
	if err != nil {
		if errors.Is(err, services.ErrChatForbidden) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Code:    http.StatusNotFound,
				Message: response.Message(response.CodeForbidden),
			})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to get messages",
		})
		return
	}
	c.JSON(http.StatusOK, page)
}
