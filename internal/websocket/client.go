package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"chat-realtime/internal/metrics"
	"chat-realtime/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Inbound events waiting for the processing loop
	inboundQueueSize = 64

	// Upper bound for handling a single inbound event
	jobTimeout = 10 * time.Second
)

type job func(ctx context.Context)

// Client is one authenticated websocket connection. Inbound events of a
// client are handled one at a time, in arrival order, by processLoop.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	user models.UserSummary

	send       chan []byte
	sendMu     sync.Mutex
	sendClosed bool

	inbound       chan job
	inboundMu     sync.Mutex
	inboundClosed bool

	limiter *rate.Limiter
	typing  *TypingState

	// Connection state management
	ctx    context.Context
	cancel context.CancelFunc
	closed int32

	unregisterOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, user models.UserSummary) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		id:      uuid.New().String(),
		hub:     hub,
		conn:    conn,
		user:    user,
		send:    make(chan []byte, hub.sendBuffer),
		inbound: make(chan job, inboundQueueSize),
		limiter: rate.NewLimiter(hub.eventRate, hub.eventBurst),
		typing:  NewTypingState(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) UserID() uint {
	return c.user.ID
}

func (c *Client) User() models.UserSummary {
	return c.user
}

func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// close marks the client as closed and cancels the context
func (c *Client) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.cancel()
		c.hub.logger.Debug("Client marked as closed", "clientID", c.id, "userID", c.user.ID)
	}
}

// Send queues a frame without blocking. A client whose buffer is full is
// too slow to keep up and gets disconnected.
func (c *Client) Send(frame []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return ErrClientDisconnected
	}

	select {
	case c.send <- frame:
		return nil
	default:
		metrics.DroppedFrames.Inc()
		c.hub.logger.Warn("Send buffer full, closing client", "clientID", c.id, "userID", c.user.ID)
		c.sendClosed = true
		close(c.send)
		return ErrClientDisconnected
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

func (c *Client) sendEvent(event EventName, data interface{}) error {
	frame, err := encodeFrame(event, data)
	if err != nil {
		return err
	}
	return c.Send(frame)
}

func (c *Client) sendError(event EventName, err error) {
	_ = c.sendEvent(EventError, ErrorData{
		Code:    errorCode(err),
		Message: clientMessage(err),
		Event:   event,
	})
}

// enqueue hands a job to the processing loop. It reports false once the
// connection has stopped accepting work.
func (c *Client) enqueue(j job) bool {
	c.inboundMu.Lock()
	defer c.inboundMu.Unlock()

	if c.inboundClosed {
		return false
	}
	c.inbound <- j
	return true
}

func (c *Client) closeInbound() {
	c.inboundMu.Lock()
	defer c.inboundMu.Unlock()
	if !c.inboundClosed {
		c.inboundClosed = true
		close(c.inbound)
	}
}

// processLoop runs queued jobs sequentially. Jobs already queued when the
// socket goes away still run to completion, then the client is unregistered.
func (c *Client) processLoop() {
	defer c.hub.requestUnregister(c)

	for j := range c.inbound {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		j(ctx)
		cancel()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.close()
		c.closeInbound()

		if err := c.conn.Close(); err != nil {
			c.hub.logger.Debug("Error closing connection", "clientID", c.id, "userID", c.user.ID, "error", err)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		if c.isClosed() {
			return websocket.ErrCloseSent
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("WebSocket error", "clientID", c.id, "userID", c.user.ID, "error", err)
			} else {
				c.hub.logger.Debug("WebSocket connection closed", "clientID", c.id, "userID", c.user.ID, "error", err)
			}
			return
		}

		if !c.limiter.Allow() {
			metrics.WsEventsTotal.WithLabelValues("unknown", "rate_limited").Inc()
			c.sendError("", ErrRateLimited)
			continue
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			metrics.WsEventsTotal.WithLabelValues("unknown", "invalid").Inc()
			c.sendError("", ErrInvalidPayload)
			continue
		}

		if !c.enqueue(func(ctx context.Context) { c.hub.dispatch(ctx, c, env) }) {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Debug("Error writing message", "clientID", c.id, "userID", c.user.ID, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.logger.Debug("Error sending ping", "clientID", c.id, "userID", c.user.ID, "error", err)
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}
