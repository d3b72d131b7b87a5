package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"chat-realtime/internal/models"
)

// authorize reports ErrNotParticipant unless userID belongs to chatID.
func (h *Hub) authorize(ctx context.Context, chatID, userID uint) error {
	ok, err := h.chats.IsParticipant(ctx, chatID, userID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !ok {
		return ErrNotParticipant
	}
	return nil
}

func (h *Hub) handleJoin(ctx context.Context, c *Client, raw json.RawMessage) error {
	chatID, err := decodeChatRef(raw)
	if err != nil {
		return err
	}
	if err := h.authorize(ctx, chatID, c.user.ID); err != nil {
		return err
	}

	h.broker.Subscribe(c, chatTopic(chatID))
	_ = c.sendEvent(EventChatJoined, ChatJoinedData{ChatID: chatID})
	h.sweepDelivered(ctx, c.user.ID, chatID)
	return nil
}

func (h *Hub) handleLeave(_ context.Context, c *Client, raw json.RawMessage) error {
	chatID, err := decodeChatRef(raw)
	if err != nil {
		return err
	}
	if c.typing.Stop(chatID) {
		h.publishTyping(c, chatID, false)
	}
	h.broker.Unsubscribe(c, chatTopic(chatID))
	return nil
}

// autoJoin subscribes a fresh connection to every chat its user belongs to
// and returns the chat ids it joined.
func (h *Hub) autoJoin(ctx context.Context, c *Client) []uint {
	chatIDs, err := h.chats.FindChatIDsByParticipant(ctx, c.user.ID)
	if err != nil {
		h.logger.Error("Failed to load chats for auto-join", "clientID", c.id, "userID", c.user.ID, "error", err)
		return []uint{}
	}
	for _, chatID := range chatIDs {
		h.broker.Subscribe(c, chatTopic(chatID))
	}
	for _, chatID := range chatIDs {
		h.sweepDelivered(ctx, c.user.ID, chatID)
	}
	if chatIDs == nil {
		chatIDs = []uint{}
	}
	return chatIDs
}

// NotifyChatCreated joins every live connection of the chat's participants
// to the new room and tells them about it.
func (h *Hub) NotifyChatCreated(chat *models.Chat) {
	topic := chatTopic(chat.ID)
	for _, userID := range chat.ParticipantIDs() {
		data := ChatNewData{Chat: chat.ToResponse(userID)}
		h.presence.ForEachConnectionOf(userID, func(c *Client) {
			c.enqueue(func(context.Context) {
				h.broker.Subscribe(c, topic)
				_ = c.sendEvent(EventChatNew, data)
			})
		})
	}
}
