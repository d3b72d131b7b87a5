package websocket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"chat-realtime/internal/models"
)

// EventName identifies a frame on the wire.
type EventName string

// Client -> server events.
const (
	EventJoinChat    EventName = "join:chat"
	EventLeaveChat   EventName = "leave:chat"
	EventSendMessage EventName = "message:send"
	EventTypingStart EventName = "typing:start"
	EventTypingStop  EventName = "typing:stop"
	EventReadMessage EventName = "message:read"
)

// Server -> client events.
const (
	EventConnectionReady   EventName = "connection:ready"
	EventChatJoined        EventName = "chat:joined"
	EventChatNew           EventName = "chat:new"
	EventMessageNew        EventName = "message:new"
	EventMessageStatus     EventName = "message:status"
	EventMessagesDelivered EventName = "messages:delivered"
	EventUnreadUpdate      EventName = "unread:update"
	EventTypingUpdate      EventName = "typing:update"
	EventError             EventName = "error"
)

func (e EventName) String() string {
	return string(e)
}

// Envelope is an inbound frame; Data is decoded per event.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Frame is an outbound frame.
type Frame struct {
	Event EventName   `json:"event"`
	Data  interface{} `json:"data"`
}

func encodeFrame(event EventName, data interface{}) ([]byte, error) {
	return json.Marshal(Frame{Event: event, Data: data})
}

/** -------------------- inbound payloads -------------------- */

// ChatRef carries a chat id. On the wire it may be a bare number or {"chatId": n}.
type ChatRef struct {
	ChatID uint `json:"chatId"`
}

func (r *ChatRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] != '{' {
		var id uint
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		r.ChatID = id
		return nil
	}
	type plain ChatRef
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = ChatRef(p)
	return nil
}

type SendMessagePayload struct {
	ChatID      uint                `json:"chatId"`
	Content     string              `json:"content"`
	Type        models.MessageType  `json:"type"`
	Attachments []models.Attachment `json:"attachments"`
	ReplyTo     *uint               `json:"replyTo,omitempty"`
	// ClientID is echoed back on message:new so the sender can match its optimistic copy.
	ClientID string `json:"clientId,omitempty"`
}

type ReadMessagesPayload struct {
	ChatID     uint   `json:"chatId"`
	MessageIDs []uint `json:"messageIds"`
}

func decodePayload(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing data", ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func decodeChatRef(raw json.RawMessage) (uint, error) {
	var ref ChatRef
	if err := decodePayload(raw, &ref); err != nil {
		return 0, err
	}
	if ref.ChatID == 0 {
		return 0, fmt.Errorf("%w: chatId is required", ErrInvalidPayload)
	}
	return ref.ChatID, nil
}

/** -------------------- outbound payloads -------------------- */

type ConnectionReadyData struct {
	ConnectionID string `json:"connectionId"`
	UserID       uint   `json:"userId"`
	Chats        []uint `json:"chats"`
}

type ChatJoinedData struct {
	ChatID uint `json:"chatId"`
}

type ChatNewData struct {
	Chat models.ChatResponse `json:"chat"`
}

type MessageNewData struct {
	Message  *models.Message `json:"message"`
	ChatID   uint            `json:"chatId"`
	ClientID string          `json:"clientId,omitempty"`
}

type MessageStatusData struct {
	MessageID   uint                 `json:"messageId"`
	ChatID      uint                 `json:"chatId"`
	Status      models.MessageStatus `json:"status"`
	DeliveredAt *time.Time           `json:"deliveredAt,omitempty"`
	ReadAt      *time.Time           `json:"readAt,omitempty"`
}

type MessagesDeliveredData struct {
	ChatID      uint      `json:"chatId"`
	MessageIDs  []uint    `json:"messageIds"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

type UnreadUpdateData struct {
	ChatID      uint `json:"chatId"`
	UnreadCount int  `json:"unreadCount"`
}

type TypingUpdateData struct {
	ChatID   uint               `json:"chatId"`
	UserID   uint               `json:"userId"`
	User     models.UserSummary `json:"user"`
	IsTyping bool               `json:"isTyping"`
}

type ErrorData struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Event   EventName `json:"event,omitempty"`
}

func userTopic(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

func chatTopic(chatID uint) string {
	return fmt.Sprintf("chat:%d", chatID)
}
