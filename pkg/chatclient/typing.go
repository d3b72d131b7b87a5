package chatclient

import (
	"sort"
	"sync"
	"time"
)

// DefaultTypingTimeout is how long a typing indicator survives without a
// fresh typing:start.
const DefaultTypingTimeout = 3 * time.Second

type typingKey struct {
	chatID uint
	userID uint
}

type typingTimer struct {
	timer *time.Timer
	gen   uint64
}

// TypingTracker keeps the local view of who is typing where. Each
// (chat, user) pair has at most one live timer; a new start restarts it.
type TypingTracker struct {
	mu       sync.Mutex
	timeout  time.Duration
	timers   map[typingKey]*typingTimer
	gen      uint64
	onChange func(chatID, userID uint, typing bool)
	closed   bool
}

// NewTypingTracker returns a tracker that calls onChange (which may be nil)
// whenever a pair starts or stops typing, including on expiry.
func NewTypingTracker(timeout time.Duration, onChange func(chatID, userID uint, typing bool)) *TypingTracker {
	if timeout <= 0 {
		timeout = DefaultTypingTimeout
	}
	return &TypingTracker{
		timeout:  timeout,
		timers:   make(map[typingKey]*typingTimer),
		onChange: onChange,
	}
}

func (t *TypingTracker) Start(chatID, userID uint) {
	key := typingKey{chatID, userID}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	existing, wasTyping := t.timers[key]
	if wasTyping {
		existing.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timers[key] = &typingTimer{
		gen:   gen,
		timer: time.AfterFunc(t.timeout, func() { t.expire(key, gen) }),
	}
	t.mu.Unlock()

	if !wasTyping {
		t.notify(chatID, userID, true)
	}
}

func (t *TypingTracker) Stop(chatID, userID uint) {
	key := typingKey{chatID, userID}

	t.mu.Lock()
	existing, ok := t.timers[key]
	if ok {
		existing.timer.Stop()
		delete(t.timers, key)
	}
	t.mu.Unlock()

	if ok {
		t.notify(chatID, userID, false)
	}
}

// expire fires from the timer. A timer that was replaced after it started
// firing carries a stale generation and is ignored.
func (t *TypingTracker) expire(key typingKey, gen uint64) {
	t.mu.Lock()
	existing, ok := t.timers[key]
	if !ok || existing.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.timers, key)
	t.mu.Unlock()

	t.notify(key.chatID, key.userID, false)
}

func (t *TypingTracker) notify(chatID, userID uint, typing bool) {
	if t.onChange != nil {
		t.onChange(chatID, userID, typing)
	}
}

func (t *TypingTracker) IsTyping(chatID, userID uint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.timers[typingKey{chatID, userID}]
	return ok
}

// TypingUsers lists users currently typing in chatID, sorted by id.
func (t *TypingTracker) TypingUsers(chatID uint) []uint {
	t.mu.Lock()
	defer t.mu.Unlock()
	var users []uint
	for key := range t.timers {
		if key.chatID == chatID {
			users = append(users, key.userID)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}

// Close cancels every pending timer without notifying.
func (t *TypingTracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for key, tt := range t.timers {
		tt.timer.Stop()
		delete(t.timers, key)
	}
}
