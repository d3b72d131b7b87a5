package models

import (
	"fmt"
	"time"
)

// MessageStatus only ever moves forward: sent -> delivered -> read.
type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

// MessageType tags the content body of a message.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
)

func (t MessageType) IsValid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile:
		return true
	default:
		return false
	}
}

// Attachment references an object uploaded out of band.
type Attachment struct {
	Key      string `json:"key"`
	URL      string `json:"url,omitempty"`
	FileName string `json:"fileName,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

/** --------------------ENTITIES-------------------- */
type Message struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	ChatID      uint          `gorm:"not null;index:idx_messages_chat_status,priority:1" json:"chatId"`
	SenderID    uint          `gorm:"not null;index" json:"senderId"`
	Content     string        `gorm:"type:text" json:"content"`
	Type        MessageType   `gorm:"not null;default:text" json:"type"`
	Attachments []Attachment  `gorm:"serializer:json;type:text" json:"attachments,omitempty"`
	ReplyToID   *uint         `json:"replyTo,omitempty"`
	Status      MessageStatus `gorm:"not null;default:sent;index:idx_messages_chat_status,priority:2" json:"status"`
	DeliveredAt *time.Time    `json:"deliveredAt,omitempty"`
	ReadAt      *time.Time    `json:"readAt,omitempty"`
	CreatedAt   time.Time     `gorm:"index" json:"createdAt"`

	Sender *UserSummary `gorm:"-" json:"sender,omitempty"`
}

// Validate checks a message before it is persisted.
func (m *Message) Validate() error {
	if m.ChatID == 0 {
		return fmt.Errorf("chat id is required")
	}
	if !m.Type.IsValid() {
		return fmt.Errorf("invalid message type: %q", m.Type)
	}
	if m.Type == MessageTypeText && m.Content == "" {
		return fmt.Errorf("text message content is required")
	}
	if m.Type != MessageTypeText && m.Content == "" && len(m.Attachments) == 0 {
		return fmt.Errorf("%s message requires content or attachments", m.Type)
	}
	for _, a := range m.Attachments {
		if a.Key == "" && a.URL == "" {
			return fmt.Errorf("attachment requires a key or url")
		}
	}
	return nil
}

/** -------------------- DTOs -------------------- */
// PaginatedMessageResponse is one page of history. NextCursor is passed back
// as "before" to fetch older messages.
type PaginatedMessageResponse struct {
	Items      []Message `json:"items"`
	NextCursor *uint     `json:"nextCursor,omitempty"`
}

// Lifecycle event kinds streamed to downstream consumers.
const (
	MessageEventCreated = "message.created"
	MessageEventStatus  = "message.status"
)

// MessageEvent describes a message lifecycle change for consumers outside
// this process, such as push notification workers.
type MessageEvent struct {
	Kind       string        `json:"kind"`
	ChatID     uint          `json:"chatId"`
	MessageID  uint          `json:"messageId"`
	SenderID   uint          `json:"senderId"`
	Status     MessageStatus `json:"status"`
	Recipients []uint        `json:"recipients,omitempty"`
	At         time.Time     `json:"at"`
	Message    *Message      `json:"message,omitempty"`
}
