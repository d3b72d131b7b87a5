package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"chat-realtime/internal/metrics"
	"chat-realtime/internal/models"
)

// deliverOnSend marks a fresh message delivered and tells the sender. It is
// only called when the message:new frame reached a recipient connection;
// everyone else is covered by the sweep on their next join.
func (h *Hub) deliverOnSend(ctx context.Context, msg *models.Message) {
	at := h.now()
	moved, err := h.messages.MarkDelivered(ctx, msg.ID, at)
	if err != nil {
		h.logger.Error("Failed to mark message delivered", "messageID", msg.ID, "error", err)
		return
	}
	if !moved {
		return
	}
	msg.Status = models.MessageStatusDelivered
	msg.DeliveredAt = &at
	metrics.StatusTransitions.WithLabelValues(string(models.MessageStatusDelivered)).Inc()

	h.publish(userTopic(msg.SenderID), EventMessageStatus, MessageStatusData{
		MessageID:   msg.ID,
		ChatID:      msg.ChatID,
		Status:      models.MessageStatusDelivered,
		DeliveredAt: &at,
	}, nil)
	h.emit(ctx, models.MessageEvent{
		Kind:      models.MessageEventStatus,
		ChatID:    msg.ChatID,
		MessageID: msg.ID,
		SenderID:  msg.SenderID,
		Status:    models.MessageStatusDelivered,
		At:        at,
	})
}

// sweepDelivered moves everything still sent in chatID that recipientID did
// not author to delivered, then notifies each affected sender once.
func (h *Hub) sweepDelivered(ctx context.Context, recipientID, chatID uint) {
	at := h.now()
	swept, err := h.messages.MarkChatDelivered(ctx, chatID, recipientID, at)
	if err != nil {
		h.logger.Error("Failed to sweep delivered messages", "chatID", chatID, "userID", recipientID, "error", err)
		return
	}
	if len(swept) == 0 {
		return
	}
	metrics.StatusTransitions.WithLabelValues(string(models.MessageStatusDelivered)).Add(float64(len(swept)))

	bySender := make(map[uint][]uint)
	var order []uint
	for _, m := range swept {
		if _, ok := bySender[m.SenderID]; !ok {
			order = append(order, m.SenderID)
		}
		bySender[m.SenderID] = append(bySender[m.SenderID], m.ID)
		h.emit(ctx, models.MessageEvent{
			Kind:      models.MessageEventStatus,
			ChatID:    chatID,
			MessageID: m.ID,
			SenderID:  m.SenderID,
			Status:    models.MessageStatusDelivered,
			At:        at,
		})
	}

	for _, senderID := range order {
		if !h.presence.IsOnline(senderID) {
			continue
		}
		h.publish(userTopic(senderID), EventMessagesDelivered, MessagesDeliveredData{
			ChatID:      chatID,
			MessageIDs:  bySender[senderID],
			DeliveredAt: at,
		}, nil)
	}
}

// handleRead marks messages read on behalf of the reader. Only messages that
// actually change status produce notifications, so repeating a read is
// silent. The reader's unread counter for the chat drops to zero.
func (h *Hub) handleRead(ctx context.Context, c *Client, raw json.RawMessage) error {
	var req ReadMessagesPayload
	if err := decodePayload(raw, &req); err != nil {
		return err
	}
	if req.ChatID == 0 {
		return fmt.Errorf("%w: chatId is required", ErrInvalidPayload)
	}
	if err := h.authorize(ctx, req.ChatID, c.user.ID); err != nil {
		return err
	}

	// An empty id list only clears the unread badge.
	at := h.now()
	var read []models.Message
	if len(req.MessageIDs) > 0 {
		var err error
		read, err = h.messages.MarkRead(ctx, req.ChatID, c.user.ID, req.MessageIDs, at)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}
	if err := h.chats.ResetUnread(ctx, req.ChatID, c.user.ID); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if len(read) > 0 {
		metrics.StatusTransitions.WithLabelValues(string(models.MessageStatusRead)).Add(float64(len(read)))
	}
	for _, m := range read {
		readAt := at
		if m.ReadAt != nil {
			readAt = *m.ReadAt
		}
		h.publish(userTopic(m.SenderID), EventMessageStatus, MessageStatusData{
			MessageID: m.ID,
			ChatID:    req.ChatID,
			Status:    models.MessageStatusRead,
			ReadAt:    &readAt,
		}, nil)
		h.emit(ctx, models.MessageEvent{
			Kind:      models.MessageEventStatus,
			ChatID:    req.ChatID,
			MessageID: m.ID,
			SenderID:  m.SenderID,
			Status:    models.MessageStatusRead,
			At:        readAt,
		})
	}

	h.publish(userTopic(c.user.ID), EventUnreadUpdate, UnreadUpdateData{ChatID: req.ChatID}, nil)
	return nil
}
