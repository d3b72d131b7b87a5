// Package chatclient is the consuming side of the realtime chat protocol: it
// dials the websocket endpoint, emits client events and delivers server
// events, tracking typing indicators locally.
package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrClosed = errors.New("chatclient: connection closed")

const (
	writeWait       = 10 * time.Second
	eventBufferSize = 128
)

// Event is one server frame. Decode Data with the typed helpers or
// json.Unmarshal.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

type outbound struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Attachment references an uploaded object by key.
type Attachment struct {
	Key      string `json:"key"`
	FileName string `json:"fileName,omitempty"`
}

type SendMessage struct {
	ChatID      uint         `json:"chatId"`
	Content     string       `json:"content"`
	Type        string       `json:"type,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ReplyTo     *uint        `json:"replyTo,omitempty"`
	ClientID    string       `json:"clientId,omitempty"`
}

type TypingUpdate struct {
	ChatID   uint `json:"chatId"`
	UserID   uint `json:"userId"`
	IsTyping bool `json:"isTyping"`
	User     struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

type Option func(*Client)

// WithTypingTimeout overrides the local typing expiry.
func WithTypingTimeout(d time.Duration) Option {
	return func(c *Client) { c.typingTimeout = d }
}

// WithTypingObserver is called whenever the local typing view changes.
func WithTypingObserver(fn func(chatID, userID uint, typing bool)) Option {
	return func(c *Client) { c.onTyping = fn }
}

func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

type Client struct {
	conn   *websocket.Conn
	dialer *websocket.Dialer
	events chan Event
	typing *TypingTracker

	typingTimeout time.Duration
	onTyping      func(chatID, userID uint, typing bool)

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to url (ws:// or wss://) with the bearer token.
func Dial(ctx context.Context, url, token string, opts ...Option) (*Client, error) {
	c := &Client{
		dialer:        websocket.DefaultDialer,
		events:        make(chan Event, eventBufferSize),
		typingTimeout: DefaultTypingTimeout,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.typing = NewTypingTracker(c.typingTimeout, c.onTyping)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, resp, err := c.dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c.conn = conn

	go c.readLoop()
	return c, nil
}

// Events delivers server frames in arrival order. It is closed when the
// connection ends.
func (c *Client) Events() <-chan Event {
	return c.events
}

func (c *Client) Typing() *TypingTracker {
	return c.typing
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) readLoop() {
	defer func() {
		c.typing.Close()
		close(c.events)
		c.shutdown()
	}()

	for {
		var ev Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("chatclient read ended", "error", err)
			}
			return
		}

		if ev.Name == "typing:update" {
			var upd TypingUpdate
			if err := json.Unmarshal(ev.Data, &upd); err == nil {
				if upd.IsTyping {
					c.typing.Start(upd.ChatID, upd.UserID)
				} else {
					c.typing.Stop(upd.ChatID, upd.UserID)
				}
			}
		}

		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

func (c *Client) emit(event string, data interface{}) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(outbound{Event: event, Data: data}); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

type chatRef struct {
	ChatID uint `json:"chatId"`
}

func (c *Client) JoinChat(chatID uint) error {
	return c.emit("join:chat", chatRef{chatID})
}

func (c *Client) LeaveChat(chatID uint) error {
	return c.emit("leave:chat", chatRef{chatID})
}

func (c *Client) SendMessage(msg SendMessage) error {
	return c.emit("message:send", msg)
}

func (c *Client) StartTyping(chatID uint) error {
	return c.emit("typing:start", chatRef{chatID})
}

func (c *Client) StopTyping(chatID uint) error {
	return c.emit("typing:stop", chatRef{chatID})
}

func (c *Client) MarkRead(chatID uint, messageIDs ...uint) error {
	return c.emit("message:read", struct {
		ChatID     uint   `json:"chatId"`
		MessageIDs []uint `json:"messageIds"`
	}{chatID, messageIDs})
}

// Close sends a close frame and tears the connection down.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()
	c.shutdown()
	return nil
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Decode unmarshals an event payload into v.
func Decode[T any](ev Event) (T, error) {
	var v T
	err := json.Unmarshal(ev.Data, &v)
	return v, err
}
