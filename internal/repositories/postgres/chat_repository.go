package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat-realtime/internal/models"

	"gorm.io/gorm"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db}
}

// Create stores the chat and its participant rows in one transaction.
func (r *ChatRepository) Create(ctx context.Context, chat *models.Chat, participantIDs []uint) error {
	if len(participantIDs) < 2 {
		return fmt.Errorf("a chat needs at least 2 participants, got %d", len(participantIDs))
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Participants", "LastMessage").Create(chat).Error; err != nil {
			return fmt.Errorf("failed to create chat: %w", err)
		}
		chat.Participants = make([]models.ChatParticipant, 0, len(participantIDs))
		for _, uid := range participantIDs {
			chat.Participants = append(chat.Participants, models.ChatParticipant{ChatID: chat.ID, UserID: uid})
		}
		if err := tx.Create(&chat.Participants).Error; err != nil {
			return fmt.Errorf("failed to add participants: %w", err)
		}
		return nil
	})
}

// FindByID loads the chat with its participants.
func (r *ChatRepository) FindByID(ctx context.Context, chatID uint) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.WithContext(ctx).Preload("Participants").First(&chat, "id = ?", chatID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("chat %d: %w", chatID, models.ErrNotFound)
		}
		return nil, err
	}
	return &chat, nil
}

// FindByParticipant lists the user's chats, most recently active first.
func (r *ChatRepository) FindByParticipant(ctx context.Context, userID uint) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Preload("LastMessage").
		Joins("JOIN chat_participants cp ON cp.chat_id = chats.id").
		Where("cp.user_id = ?", userID).
		Order("chats.updated_at DESC").
		Find(&chats).Error
	return chats, err
}

func (r *ChatRepository) FindChatIDsByParticipant(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.ChatParticipant{}).
		Where("user_id = ?", userID).
		Order("chat_id").
		Pluck("chat_id", &ids).Error
	return ids, err
}

func (r *ChatRepository) IsParticipant(ctx context.Context, chatID, userID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Count(&n).Error
	return n > 0, err
}

func (r *ChatRepository) SetLastMessage(ctx context.Context, chatID, messageID uint) error {
	res := r.db.WithContext(ctx).
		Model(&models.Chat{}).
		Where("id = ?", chatID).
		Updates(map[string]interface{}{"last_message_id": messageID, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("chat %d: %w", chatID, models.ErrNotFound)
	}
	return nil
}

// IncrementUnread bumps every participant's counter except senderID's in a
// single UPDATE, so concurrent senders never lose increments.
func (r *ChatRepository) IncrementUnread(ctx context.Context, chatID, senderID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.ChatParticipant{}).
		Where("chat_id = ? AND user_id <> ?", chatID, senderID).
		UpdateColumn("unread_count", gorm.Expr("unread_count + ?", 1)).Error
}

func (r *ChatRepository) ResetUnread(ctx context.Context, chatID, userID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		UpdateColumn("unread_count", 0).Error
}
