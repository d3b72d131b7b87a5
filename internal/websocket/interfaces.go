package websocket

import (
	"context"
	"time"

	"chat-realtime/internal/models"
)

// ChatStore is the slice of chat persistence the realtime layer needs.
type ChatStore interface {
	FindByID(ctx context.Context, chatID uint) (*models.Chat, error)
	FindChatIDsByParticipant(ctx context.Context, userID uint) ([]uint, error)
	IsParticipant(ctx context.Context, chatID, userID uint) (bool, error)
	SetLastMessage(ctx context.Context, chatID, messageID uint) error
	IncrementUnread(ctx context.Context, chatID, senderID uint) error
	ResetUnread(ctx context.Context, chatID, userID uint) error
}

// MessageStore persists messages and their status transitions. The Mark*
// methods must be conditional so that status never regresses, and must
// return only the rows they actually moved.
type MessageStore interface {
	Create(ctx context.Context, msg *models.Message) error
	FindByID(ctx context.Context, id uint) (*models.Message, error)
	MarkDelivered(ctx context.Context, messageID uint, at time.Time) (bool, error)
	MarkChatDelivered(ctx context.Context, chatID, recipientID uint, at time.Time) ([]models.Message, error)
	MarkRead(ctx context.Context, chatID, readerID uint, messageIDs []uint, at time.Time) ([]models.Message, error)
}

// EventSink receives message lifecycle events for consumers outside this process.
type EventSink interface {
	PublishMessageEvent(ctx context.Context, event models.MessageEvent) error
}

// AttachmentVerifier checks that referenced objects exist before a message is stored.
type AttachmentVerifier interface {
	VerifyAttachments(ctx context.Context, attachments []models.Attachment) error
}

// PresenceMirror publishes online/offline transitions to a shared store.
type PresenceMirror interface {
	SetUserOnline(ctx context.Context, userID uint) error
	SetUserOffline(ctx context.Context, userID uint) error
}
