package websocket

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"chat-realtime/internal/metrics"
	"chat-realtime/internal/models"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	defaultSendBuffer = 256
	defaultEventRate  = 20
	defaultEventBurst = 40

	// Presence transitions waiting to be mirrored
	mirrorQueueSize = 1024
)

type presenceChange struct {
	userID uint
	online bool
}

// Hub owns the presence registry and the room broker and routes inbound
// events of every connection to the handler for that event.
type Hub struct {
	presence *PresenceRegistry
	broker   Broker

	chats    ChatStore
	messages MessageStore

	events   EventSink
	verifier AttachmentVerifier
	mirror   PresenceMirror
	mirrorQ  chan presenceChange

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	sendBuffer int
	eventRate  rate.Limit
	eventBurst int
	now        func() time.Time
	logger     *slog.Logger

	// Context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Hub)

func WithBroker(b Broker) Option {
	return func(h *Hub) { h.broker = b }
}

func WithEventSink(s EventSink) Option {
	return func(h *Hub) { h.events = s }
}

func WithAttachmentVerifier(v AttachmentVerifier) Option {
	return func(h *Hub) { h.verifier = v }
}

func WithPresenceMirror(m PresenceMirror) Option {
	return func(h *Hub) { h.mirror = m }
}

func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithEventRate limits inbound events per connection.
func WithEventRate(perSecond float64, burst int) Option {
	return func(h *Hub) {
		if perSecond > 0 {
			h.eventRate = rate.Limit(perSecond)
		}
		if burst > 0 {
			h.eventBurst = burst
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

func NewHub(chats ChatStore, messages MessageStore, opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		presence:   NewPresenceRegistry(),
		broker:     NewLocalBroker(),
		chats:      chats,
		messages:   messages,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		sendBuffer: defaultSendBuffer,
		eventRate:  defaultEventRate,
		eventBurst: defaultEventBurst,
		now:        time.Now,
		logger:     slog.Default(),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.mirror != nil {
		h.mirrorQ = make(chan presenceChange, mirrorQueueSize)
		go h.runMirror()
	}
	return h
}

func (h *Hub) Presence() *PresenceRegistry {
	return h.presence
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub shutting down")
			return
		}
	}
}

// Stop ends the hub loop and closes every live connection.
func (h *Hub) Stop() {
	h.cancel()
	for _, c := range h.presence.All() {
		c.close()
		if c.conn != nil {
			c.conn.Close()
		}
	}
}

// Serve takes ownership of an upgraded connection for an authenticated user.
func (h *Hub) Serve(conn *websocket.Conn, user models.UserSummary) *Client {
	client := NewClient(h, conn, user)

	select {
	case h.register <- client:
	case <-h.ctx.Done():
		conn.Close()
		return nil
	}

	client.enqueue(func(ctx context.Context) { h.connect(ctx, client) })

	go client.writePump()
	go client.readPump()
	go client.processLoop()

	h.logger.Info("New WebSocket connection established", "clientID", client.id, "userID", user.ID)
	return client
}

func (h *Hub) registerClient(c *Client) {
	first := h.presence.Register(c.user.ID, c)
	h.broker.Subscribe(c, userTopic(c.user.ID))

	metrics.WsConnections.Inc()
	if first {
		metrics.OnlineUsers.Inc()
		h.mirrorPresence(c.user.ID, true)
	}
	h.logger.Info("Client registered", "clientID", c.id, "userID", c.user.ID, "firstConnection", first)
}

func (h *Hub) requestUnregister(c *Client) {
	c.unregisterOnce.Do(func() {
		select {
		case h.unregister <- c:
		case <-h.ctx.Done():
			h.unregisterClient(c)
		}
	})
}

// unregisterClient tears a connection down. Calling it twice for the same
// client is a no-op the second time.
func (h *Hub) unregisterClient(c *Client) {
	for _, chatID := range c.typing.Drain(h.now(), typingTTL) {
		h.publishTyping(c, chatID, false)
	}

	h.broker.UnsubscribeAll(c)
	removed, last := h.presence.Unregister(c.user.ID, c)
	c.close()
	c.closeSend()

	if !removed {
		return
	}
	metrics.WsConnections.Dec()
	if last {
		metrics.OnlineUsers.Dec()
		h.mirrorPresence(c.user.ID, false)
	}
	h.logger.Info("Client unregistered", "clientID", c.id, "userID", c.user.ID, "userOffline", last)
}

func (h *Hub) mirrorPresence(userID uint, online bool) {
	if h.mirror == nil {
		return
	}
	select {
	case h.mirrorQ <- presenceChange{userID: userID, online: online}:
	default:
		h.logger.Warn("Presence mirror queue full, dropping update", "userID", userID, "online", online)
	}
}

// runMirror applies presence transitions in the order they happened.
func (h *Hub) runMirror() {
	for {
		select {
		case change := <-h.mirrorQ:
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			var err error
			if change.online {
				err = h.mirror.SetUserOnline(ctx, change.userID)
			} else {
				err = h.mirror.SetUserOffline(ctx, change.userID)
			}
			cancel()
			if err != nil {
				h.logger.Error("Failed to mirror presence", "userID", change.userID, "online", change.online, "error", err)
			}
		case <-h.ctx.Done():
			return
		}
	}
}

// connect runs once per connection, before any client event is handled.
func (h *Hub) connect(ctx context.Context, c *Client) {
	chats := h.autoJoin(ctx, c)
	_ = c.sendEvent(EventConnectionReady, ConnectionReadyData{
		ConnectionID: c.id,
		UserID:       c.user.ID,
		Chats:        chats,
	})
}

func (h *Hub) dispatch(ctx context.Context, c *Client, env Envelope) {
	var err error
	label := env.Event.String()

	switch env.Event {
	case EventJoinChat:
		err = h.handleJoin(ctx, c, env.Data)
	case EventLeaveChat:
		err = h.handleLeave(ctx, c, env.Data)
	case EventSendMessage:
		err = h.handleSend(ctx, c, env.Data)
	case EventTypingStart:
		err = h.handleTyping(ctx, c, env.Data, true)
	case EventTypingStop:
		err = h.handleTyping(ctx, c, env.Data, false)
	case EventReadMessage:
		err = h.handleRead(ctx, c, env.Data)
	default:
		label = "unknown"
		err = ErrUnknownEvent
	}

	if err != nil {
		metrics.WsEventsTotal.WithLabelValues(label, "error").Inc()
		if errors.Is(err, ErrPersistence) {
			h.logger.Error("Event failed", "event", env.Event, "clientID", c.id, "userID", c.user.ID, "error", err)
		} else {
			h.logger.Debug("Event rejected", "event", env.Event, "clientID", c.id, "userID", c.user.ID, "error", err)
		}
		c.sendError(env.Event, err)
		return
	}
	metrics.WsEventsTotal.WithLabelValues(label, "ok").Inc()
}

func (h *Hub) publish(topic string, event EventName, data interface{}, except Subscriber) int {
	frame, err := encodeFrame(event, data)
	if err != nil {
		h.logger.Error("Failed to encode frame", "event", event, "error", err)
		return 0
	}
	return h.broker.Publish(topic, frame, except)
}

func (h *Hub) emit(ctx context.Context, event models.MessageEvent) {
	if h.events == nil {
		return
	}
	if err := h.events.PublishMessageEvent(ctx, event); err != nil {
		h.logger.Warn("Failed to publish message event", "kind", event.Kind, "messageID", event.MessageID, "error", err)
	}
}
