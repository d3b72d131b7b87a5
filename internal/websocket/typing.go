package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// typingTTL matches the client-side expiry of a typing indicator.
const typingTTL = 3 * time.Second

// TypingState remembers which chats a connection last reported typing in,
// so a dropped connection can clear its indicators.
type TypingState struct {
	mu     sync.Mutex
	active map[uint]time.Time
}

func NewTypingState() *TypingState {
	return &TypingState{active: make(map[uint]time.Time)}
}

func (t *TypingState) Start(chatID uint, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[chatID] = at
}

// Stop reports whether chatID was marked as typing.
func (t *TypingState) Stop(chatID uint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[chatID]
	delete(t.active, chatID)
	return ok
}

// Drain clears the state and returns chats whose indicator has not yet
// expired on observers.
func (t *TypingState) Drain(now time.Time, ttl time.Duration) []uint {
	t.mu.Lock()
	defer t.mu.Unlock()

	var live []uint
	for chatID, at := range t.active {
		if now.Sub(at) < ttl {
			live = append(live, chatID)
		}
	}
	t.active = make(map[uint]time.Time)
	return live
}

// handleTyping relays a typing signal to the other connections in the room.
// Signals for rooms the connection has not joined are dropped.
func (h *Hub) handleTyping(_ context.Context, c *Client, raw json.RawMessage, isTyping bool) error {
	chatID, err := decodeChatRef(raw)
	if err != nil {
		return err
	}
	if !h.broker.IsSubscribed(c, chatTopic(chatID)) {
		h.logger.Debug("Typing signal for unjoined chat ignored", "clientID", c.id, "userID", c.user.ID, "chatID", chatID)
		return nil
	}

	if isTyping {
		c.typing.Start(chatID, h.now())
	} else {
		c.typing.Stop(chatID)
	}
	h.publishTyping(c, chatID, isTyping)
	return nil
}

func (h *Hub) publishTyping(c *Client, chatID uint, isTyping bool) {
	h.publish(chatTopic(chatID), EventTypingUpdate, TypingUpdateData{
		ChatID:   chatID,
		UserID:   c.user.ID,
		User:     c.user,
		IsTyping: isTyping,
	}, c)
}
