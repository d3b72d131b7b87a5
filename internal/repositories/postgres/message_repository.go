package postgres

import (
	"context"
	"fmt"
	"time"

	"chat-realtime/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db}
}

// Create persists a new message in the sent state.
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	msg.Status = models.MessageStatusSent
	msg.DeliveredAt = nil
	msg.ReadAt = nil
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *MessageRepository) FindByID(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	err := r.db.WithContext(ctx).First(&msg, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("message %d: %w", id, models.ErrNotFound)
		}
		return nil, err
	}
	return &msg, nil
}

// ListByChat pages backwards from before (exclusive); before == 0 starts at the newest.
func (r *MessageRepository) ListByChat(ctx context.Context, chatID uint, limit int, before uint) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := r.db.WithContext(ctx).Where("chat_id = ?", chatID)
	if before > 0 {
		q = q.Where("id < ?", before)
	}
	var msgs []models.Message
	err := q.Order("id DESC").Limit(limit).Find(&msgs).Error
	return msgs, err
}

// MarkDelivered moves one message from sent to delivered. It reports false
// when the message had already moved on.
func (r *MessageRepository) MarkDelivered(ctx context.Context, messageID uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ? AND status = ?", messageID, models.MessageStatusSent).
		Updates(map[string]interface{}{"status": models.MessageStatusDelivered, "delivered_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkChatDelivered sweeps every sent message in chatID not authored by
// recipientID to delivered and returns exactly the rows it transitioned.
func (r *MessageRepository) MarkChatDelivered(ctx context.Context, chatID, recipientID uint, at time.Time) ([]models.Message, error) {
	var swept []models.Message
	err := r.db.WithContext(ctx).
		Model(&swept).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}, {Name: "chat_id"}, {Name: "sender_id"}}}).
		Where("chat_id = ? AND sender_id <> ? AND status = ?", chatID, recipientID, models.MessageStatusSent).
		Updates(map[string]interface{}{"status": models.MessageStatusDelivered, "delivered_at": at}).Error
	if err != nil {
		return nil, err
	}
	return swept, nil
}

// MarkRead moves the listed messages of chatID that readerID did not author
// to read. Already-read messages are left untouched, so repeating a call is a
// no-op. Only transitioned rows are returned.
func (r *MessageRepository) MarkRead(ctx context.Context, chatID, readerID uint, messageIDs []uint, at time.Time) ([]models.Message, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	var read []models.Message
	err := r.db.WithContext(ctx).
		Model(&read).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}, {Name: "chat_id"}, {Name: "sender_id"}, {Name: "read_at"}}}).
		Where("chat_id = ? AND id IN ? AND sender_id <> ? AND status <> ?", chatID, messageIDs, readerID, models.MessageStatusRead).
		Updates(map[string]interface{}{
			"status":       models.MessageStatusRead,
			"read_at":      at,
			"delivered_at": gorm.Expr("COALESCE(delivered_at, ?)", at),
		}).Error
	if err != nil {
		return nil, err
	}
	return read, nil
}
