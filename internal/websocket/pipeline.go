package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"chat-realtime/internal/adapters/storage"
	"chat-realtime/internal/metrics"
	"chat-realtime/internal/models"
)

// handleSend validates, persists and fans out a new message. The message is
// stored and the chat's last message and unread counters updated before
// anyone is told about it.
func (h *Hub) handleSend(ctx context.Context, c *Client, raw json.RawMessage) error {
	var req SendMessagePayload
	if err := decodePayload(raw, &req); err != nil {
		return err
	}
	if req.ChatID == 0 {
		return fmt.Errorf("%w: chatId is required", ErrInvalidPayload)
	}

	chat, err := h.chats.FindByID(ctx, req.ChatID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return ErrNotParticipant
		}
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !chat.HasParticipant(c.user.ID) {
		return ErrNotParticipant
	}

	msg := &models.Message{
		ChatID:      req.ChatID,
		SenderID:    c.user.ID,
		Content:     req.Content,
		Type:        req.Type,
		Attachments: req.Attachments,
		ReplyToID:   req.ReplyTo,
	}
	if msg.Type == "" {
		msg.Type = models.MessageTypeText
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := h.checkReply(ctx, msg); err != nil {
		return err
	}
	if h.verifier != nil && len(msg.Attachments) > 0 {
		if err := h.verifier.VerifyAttachments(ctx, msg.Attachments); err != nil {
			if errors.Is(err, storage.ErrAttachmentNotFound) {
				return err
			}
			return fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}

	if err := h.messages.Create(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := h.chats.SetLastMessage(ctx, msg.ChatID, msg.ID); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := h.chats.IncrementUnread(ctx, msg.ChatID, msg.SenderID); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	metrics.MessagesPersisted.Inc()

	sender := c.user
	msg.Sender = &sender

	data := MessageNewData{Message: msg, ChatID: msg.ChatID, ClientID: req.ClientID}
	topic := chatTopic(msg.ChatID)
	recipients := otherParticipants(chat, c.user.ID)
	// Only connections already in the room receive the frame below.
	reached := h.inRoom(topic, recipients)
	h.publish(topic, EventMessageNew, data, nil)
	if !h.broker.IsSubscribed(c, topic) {
		_ = c.sendEvent(EventMessageNew, data)
	}

	h.emit(ctx, models.MessageEvent{
		Kind:       models.MessageEventCreated,
		ChatID:     msg.ChatID,
		MessageID:  msg.ID,
		SenderID:   msg.SenderID,
		Status:     msg.Status,
		Recipients: recipients,
		At:         msg.CreatedAt,
		Message:    msg,
	})

	if reached {
		h.deliverOnSend(ctx, msg)
	}
	return nil
}

func (h *Hub) checkReply(ctx context.Context, msg *models.Message) error {
	if msg.ReplyToID == nil {
		return nil
	}
	parent, err := h.messages.FindByID(ctx, *msg.ReplyToID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%w: replyTo message does not exist", ErrInvalidPayload)
		}
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if parent.ChatID != msg.ChatID {
		return fmt.Errorf("%w: replyTo message belongs to another chat", ErrInvalidPayload)
	}
	return nil
}

func otherParticipants(chat *models.Chat, senderID uint) []uint {
	others := make([]uint, 0, len(chat.Participants))
	for _, id := range chat.ParticipantIDs() {
		if id != senderID {
			others = append(others, id)
		}
	}
	return others
}

// inRoom reports whether any of the users has a connection subscribed to topic.
func (h *Hub) inRoom(topic string, userIDs []uint) bool {
	for _, id := range userIDs {
		found := false
		h.presence.ForEachConnectionOf(id, func(conn *Client) {
			if !found && h.broker.IsSubscribed(conn, topic) {
				found = true
			}
		})
		if found {
			return true
		}
	}
	return false
}
