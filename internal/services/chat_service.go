package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"chat-realtime/internal/models"
	"chat-realtime/internal/repositories/postgres"
)

var (
	ErrChatForbidden       = errors.New("chat not found or access denied")
	ErrUnknownParticipants = errors.New("one or more participants do not exist")
)

type ChatService struct {
	chats    *postgres.ChatRepository
	messages *postgres.MessageRepository
	users    *postgres.UserRepository
}

func NewChatService(chats *postgres.ChatRepository, messages *postgres.MessageRepository, users *postgres.UserRepository) *ChatService {
	return &ChatService{chats: chats, messages: messages, users: users}
}

// ListChats returns the user's chats rendered for that user.
func (s *ChatService) ListChats(ctx context.Context, userID uint) ([]models.ChatResponse, error) {
	chats, err := s.chats.FindByParticipant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	out := make([]models.ChatResponse, 0, len(chats))
	for i := range chats {
		out = append(out, chats[i].ToResponse(userID))
	}
	return out, nil
}

// CreateChat creates a chat between the creator and the requested users.
// Two-person chats are direct chats, anything larger is a group.
func (s *ChatService) CreateChat(ctx context.Context, creatorID uint, req models.CreateChatRequest) (*models.Chat, error) {
	ids := uniqueIDs(append([]uint{creatorID}, req.ParticipantIDs...))
	if len(ids) < 2 {
		return nil, fmt.Errorf("%w: a chat needs at least one other participant", ErrUnknownParticipants)
	}

	n, err := s.users.CountExisting(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to check participants: %w", err)
	}
	if int(n) != len(ids) {
		return nil, ErrUnknownParticipants
	}

	chat := &models.Chat{Name: req.Name, IsGroup: len(ids) > 2}
	if err := s.chats.Create(ctx, chat, ids); err != nil {
		return nil, err
	}
	return chat, nil
}

// ListMessages returns a page of history, newest first, for a participant.
func (s *ChatService) ListMessages(ctx context.Context, userID, chatID uint, limit int, before uint) (*models.PaginatedMessageResponse, error) {
	ok, err := s.chats.IsParticipant(ctx, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !ok {
		return nil, ErrChatForbidden
	}

	msgs, err := s.messages.ListByChat(ctx, chatID, limit, before)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	page := &models.PaginatedMessageResponse{Items: msgs}
	if len(msgs) > 0 {
		cursor := msgs[len(msgs)-1].ID
		page.NextCursor = &cursor
	}
	return page, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
