package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"chat-realtime/internal/models"

	"github.com/stretchr/testify/require"
)

// memStore is an in-memory ChatStore and MessageStore.
type memStore struct {
	mu       sync.Mutex
	chats    map[uint]*models.Chat
	messages map[uint]*models.Message
	nextMsg  uint
	failNext error
}

func newMemStore() *memStore {
	return &memStore{
		chats:    make(map[uint]*models.Chat),
		messages: make(map[uint]*models.Message),
	}
}

func (s *memStore) addChat(id uint, participants ...uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat := &models.Chat{ID: id}
	for _, p := range participants {
		chat.Participants = append(chat.Participants, models.ChatParticipant{ChatID: id, UserID: p})
	}
	s.chats[id] = chat
}

func (s *memStore) failWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *memStore) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *memStore) unread(chatID, userID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chats[chatID].UnreadCounts()[userID]
}

func (s *memStore) message(id uint) models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.messages[id]
}

func (s *memStore) FindByID(_ context.Context, chatID uint) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[chatID]
	if !ok {
		return nil, fmt.Errorf("chat %d: %w", chatID, models.ErrNotFound)
	}
	cp := *chat
	cp.Participants = append([]models.ChatParticipant(nil), chat.Participants...)
	return &cp, nil
}

func (s *memStore) FindChatIDsByParticipant(_ context.Context, userID uint) ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uint
	for id, chat := range s.chats {
		if chat.HasParticipant(userID) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *memStore) IsParticipant(_ context.Context, chatID, userID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return false, err
	}
	chat, ok := s.chats[chatID]
	return ok && chat.HasParticipant(userID), nil
}

func (s *memStore) SetLastMessage(_ context.Context, chatID, messageID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := messageID
	s.chats[chatID].LastMessageID = &id
	return nil
}

func (s *memStore) IncrementUnread(_ context.Context, chatID, senderID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat := s.chats[chatID]
	for i := range chat.Participants {
		if chat.Participants[i].UserID != senderID {
			chat.Participants[i].UnreadCount++
		}
	}
	return nil
}

func (s *memStore) ResetUnread(_ context.Context, chatID, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat := s.chats[chatID]
	for i := range chat.Participants {
		if chat.Participants[i].UserID == userID {
			chat.Participants[i].UnreadCount = 0
		}
	}
	return nil
}

type memMessages struct{ *memStore }

func (m memMessages) Create(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	m.nextMsg++
	msg.ID = m.nextMsg
	msg.Status = models.MessageStatusSent
	msg.CreatedAt = time.Now()
	cp := *msg
	m.messages[msg.ID] = &cp
	return nil
}

func (m memMessages) FindByID(_ context.Context, id uint) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %d: %w", id, models.ErrNotFound)
	}
	cp := *msg
	return &cp, nil
}

func (m memMessages) MarkDelivered(_ context.Context, id uint, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok || msg.Status != models.MessageStatusSent {
		return false, nil
	}
	msg.Status = models.MessageStatusDelivered
	msg.DeliveredAt = &at
	return true, nil
}

func (m memMessages) MarkChatDelivered(_ context.Context, chatID, recipientID uint, at time.Time) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for id := uint(1); id <= m.nextMsg; id++ {
		msg := m.messages[id]
		if msg.ChatID == chatID && msg.SenderID != recipientID && msg.Status == models.MessageStatusSent {
			msg.Status = models.MessageStatusDelivered
			msg.DeliveredAt = &at
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (m memMessages) MarkRead(_ context.Context, chatID, readerID uint, ids []uint, at time.Time) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for _, id := range ids {
		msg, ok := m.messages[id]
		if !ok || msg.ChatID != chatID || msg.SenderID == readerID || msg.Status == models.MessageStatusRead {
			continue
		}
		msg.Status = models.MessageStatusRead
		msg.ReadAt = &at
		if msg.DeliveredAt == nil {
			msg.DeliveredAt = &at
		}
		out = append(out, *msg)
	}
	return out, nil
}

// recordingSink collects lifecycle events.
type recordingSink struct {
	mu     sync.Mutex
	events []models.MessageEvent
}

func (r *recordingSink) PublishMessageEvent(_ context.Context, e models.MessageEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSink) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Kind+":"+string(e.Status))
	}
	return out
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestHub(t *testing.T, opts ...Option) (*Hub, *memStore) {
	t.Helper()
	store := newMemStore()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	h := NewHub(store, memMessages{store}, opts...)
	t.Cleanup(h.Stop)
	return h, store
}

// connectClient registers a connection without a socket. Frames queued for it
// are read back with nextFrame.
func connectClient(t *testing.T, h *Hub, userID uint) *Client {
	t.Helper()
	c := NewClient(h, nil, models.UserSummary{ID: userID, Username: fmt.Sprintf("user%d", userID)})
	h.registerClient(c)
	h.connect(context.Background(), c)
	f := nextFrame(t, c)
	require.Equal(t, EventConnectionReady, f.Event)
	return c
}

type received struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func nextFrame(t *testing.T, c *Client) received {
	t.Helper()
	select {
	case raw, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var f received
		require.NoError(t, json.Unmarshal(raw, &f))
		return f
	case <-time.After(time.Second):
		t.Fatalf("no frame for client %s", c.id)
		return received{}
	}
}

func expectNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected frame: %s", raw)
	default:
	}
}

func decodeData[T any](t *testing.T, f received) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(f.Data, &v))
	return v
}

func send(t *testing.T, h *Hub, c *Client, event EventName, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	h.dispatch(context.Background(), c, Envelope{Event: event, Data: raw})
}
