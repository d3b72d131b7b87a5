package models

import (
	"time"
)

/** --------------------ENTITIES-------------------- */
// Chat is a conversation between two or more users. Membership and the
// per-participant unread counters live together in ChatParticipant rows.
type Chat struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	Name          string            `json:"name,omitempty"`
	IsGroup       bool              `gorm:"not null;default:false" json:"isGroup"`
	LastMessageID *uint             `json:"lastMessageId,omitempty"`
	LastMessage   *Message          `gorm:"foreignKey:LastMessageID" json:"lastMessage,omitempty"`
	Participants  []ChatParticipant `gorm:"foreignKey:ChatID" json:"participants,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// ChatParticipant doubles as the unread-count entry for UserID on ChatID.
type ChatParticipant struct {
	ChatID      uint      `gorm:"primaryKey;autoIncrement:false" json:"chatId"`
	UserID      uint      `gorm:"primaryKey;autoIncrement:false;index" json:"userId"`
	UnreadCount int       `gorm:"not null;default:0;check:unread_count >= 0" json:"unreadCount"`
	JoinedAt    time.Time `gorm:"autoCreateTime" json:"joinedAt"`
}

func (c *Chat) ParticipantIDs() []uint {
	ids := make([]uint, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

func (c *Chat) HasParticipant(userID uint) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// UnreadCounts returns the participant -> unread mapping.
func (c *Chat) UnreadCounts() map[uint]int {
	counts := make(map[uint]int, len(c.Participants))
	for _, p := range c.Participants {
		counts[p.UserID] = p.UnreadCount
	}
	return counts
}

/** -------------------- DTOs -------------------- */
// Request
type CreateChatRequest struct {
	Name           string `json:"name,omitempty" binding:"omitempty,max=100"`
	ParticipantIDs []uint `json:"participantIds" binding:"required,min=1"`
}

// Response
type ChatResponse struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name,omitempty"`
	IsGroup        bool      `json:"isGroup"`
	ParticipantIDs []uint    `json:"participantIds"`
	LastMessage    *Message  `json:"lastMessage,omitempty"`
	UnreadCount    int       `json:"unreadCount"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ToResponse renders the chat from the point of view of viewerID.
func (c *Chat) ToResponse(viewerID uint) ChatResponse {
	return ChatResponse{
		ID:             c.ID,
		Name:           c.Name,
		IsGroup:        c.IsGroup,
		ParticipantIDs: c.ParticipantIDs(),
		LastMessage:    c.LastMessage,
		UnreadCount:    c.UnreadCounts()[viewerID],
		UpdatedAt:      c.UpdatedAt,
	}
}
