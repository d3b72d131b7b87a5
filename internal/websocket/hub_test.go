package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"chat-realtime/internal/models"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSocketServer serves the hub over a real websocket. The user id comes
// from the "uid" query parameter.
func newSocketServer(t *testing.T, h *Hub) *httptest.Server {
	t.Helper()
	upgrader := NewUpgrader(nil)
	go h.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, err := strconv.Atoi(r.URL.Query().Get("uid"))
		if err != nil {
			http.Error(w, "bad uid", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Serve(conn, models.UserSummary{ID: uint(uid), Username: "user" + strconv.Itoa(uid)})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, uid int) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?uid=" + strconv.Itoa(uid)
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *gws.Conn, want EventName) received {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		var f received
		require.NoError(t, json.Unmarshal(raw, &f))
		if f.Event == want {
			return f
		}
	}
}

func writeEvent(t *testing.T, conn *gws.Conn, event EventName, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Envelope{Event: event, Data: raw}))
}

func TestSocketRoundTrip(t *testing.T) {
	h, store := newTestHub(t)
	store.addChat(1, 1, 2)
	srv := newSocketServer(t, h)

	alice := dial(t, srv, 1)
	ready := decodeData[ConnectionReadyData](t, readEvent(t, alice, EventConnectionReady))
	assert.Equal(t, []uint{1}, ready.Chats)

	bob := dial(t, srv, 2)
	readEvent(t, bob, EventConnectionReady)

	writeEvent(t, alice, EventSendMessage, SendMessagePayload{ChatID: 1, Content: "over the wire"})

	got := decodeData[MessageNewData](t, readEvent(t, bob, EventMessageNew))
	assert.Equal(t, "over the wire", got.Message.Content)

	status := decodeData[MessageStatusData](t, readEvent(t, alice, EventMessageStatus))
	assert.Equal(t, models.MessageStatusDelivered, status.Status)

	writeEvent(t, bob, EventReadMessage, ReadMessagesPayload{ChatID: 1, MessageIDs: []uint{got.Message.ID}})
	status = decodeData[MessageStatusData](t, readEvent(t, alice, EventMessageStatus))
	assert.Equal(t, models.MessageStatusRead, status.Status)
}

func TestSocketDisconnectUpdatesPresence(t *testing.T) {
	h, store := newTestHub(t)
	store.addChat(1, 1, 2)
	srv := newSocketServer(t, h)

	alice := dial(t, srv, 1)
	readEvent(t, alice, EventConnectionReady)
	bob := dial(t, srv, 2)
	readEvent(t, bob, EventConnectionReady)
	require.True(t, h.presence.IsOnline(1))

	writeEvent(t, alice, EventTypingStart, 1)
	assert.True(t, decodeData[TypingUpdateData](t, readEvent(t, bob, EventTypingUpdate)).IsTyping)

	alice.Close()

	assert.False(t, decodeData[TypingUpdateData](t, readEvent(t, bob, EventTypingUpdate)).IsTyping)
	assert.Eventually(t, func() bool { return !h.presence.IsOnline(1) }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, h.presence.IsOnline(2))
}

func TestSocketMalformedFrame(t *testing.T) {
	h, _ := newTestHub(t)
	srv := newSocketServer(t, h)

	conn := dial(t, srv, 1)
	readEvent(t, conn, EventConnectionReady)

	require.NoError(t, conn.WriteMessage(gws.TextMessage, []byte("not json")))
	e := decodeData[ErrorData](t, readEvent(t, conn, EventError))
	assert.Equal(t, "invalid_payload", e.Code)
}

func TestSocketRateLimit(t *testing.T) {
	h, _ := newTestHub(t, WithEventRate(1, 2))
	srv := newSocketServer(t, h)

	conn := dial(t, srv, 1)
	readEvent(t, conn, EventConnectionReady)

	for i := 0; i < 5; i++ {
		writeEvent(t, conn, EventTypingStart, 1)
	}
	e := decodeData[ErrorData](t, readEvent(t, conn, EventError))
	assert.Equal(t, "rate_limited", e.Code)
}
