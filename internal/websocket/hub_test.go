package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youth-scoreboard/internal/domain"
)

type staticViews map[string]domain.PublicView

func (s staticViews) PublicByCode(_ context.Context, code string) (*domain.PublicView, error) {
	v, ok := s[code]
	if !ok {
		return nil, domain.ErrMatchNotFound
	}
	return &v, nil
}

type wsConn struct {
	t       *testing.T
	conn    *websocket.Conn
	pending []Message
}

func dial(t *testing.T, hub *Hub, views ViewSource) *wsConn {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, views, logger, w, r)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &wsConn{t: t, conn: conn}
}

func (c *wsConn) send(msg ClientMessage) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(msg))
}

// next returns the next message; several may share one frame.
func (c *wsConn) next() Message {
	c.t.Helper()
	for len(c.pending) == 0 {
		require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := c.conn.ReadMessage()
		require.NoError(c.t, err)
		for _, line := range bytes.Split(data, []byte{'\n'}) {
			var msg Message
			require.NoError(c.t, json.Unmarshal(line, &msg))
			c.pending = append(c.pending, msg)
		}
	}
	msg := c.pending[0]
	c.pending = c.pending[1:]
	return msg
}

func decodeView(t *testing.T, msg Message) domain.PublicView {
	t.Helper()
	raw, err := json.Marshal(msg.Data)
	require.NoError(t, err)
	var view domain.PublicView
	require.NoError(t, json.Unmarshal(raw, &view))
	return view
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func TestSubscribeSendsSnapshotAndUpdates(t *testing.T) {
	hub := startHub(t)
	views := staticViews{"ABC234": {PublicCode: "ABC234", HomeScore: 1}}
	c := dial(t, hub, views)

	c.send(ClientMessage{Type: MessageTypeSubscribe, MatchCode: "abc234"})
	ack := c.next()
	assert.Equal(t, MessageTypeSubscribed, ack.Type)
	assert.Equal(t, "ABC234", ack.MatchCode)

	snapshot := c.next()
	assert.Equal(t, MessageTypeMatchUpdate, snapshot.Type)
	assert.Equal(t, 1, decodeView(t, snapshot).HomeScore)

	require.Eventually(t, func() bool { return hub.SubscriberCount("ABC234") == 1 }, time.Second, 10*time.Millisecond)
	hub.BroadcastMatchUpdate("ABC234", &domain.PublicView{PublicCode: "ABC234", HomeScore: 2})
	hub.BroadcastMatchUpdate("ZZZ999", &domain.PublicView{PublicCode: "ZZZ999"})

	update := c.next()
	assert.Equal(t, MessageTypeMatchUpdate, update.Type)
	assert.Equal(t, 2, decodeView(t, update).HomeScore)
	assert.Equal(t, []string{"ABC234"}, hub.ActiveCodes())
}

func TestSubscribeRejectsUnknownMatch(t *testing.T) {
	hub := startHub(t)
	c := dial(t, hub, staticViews{})

	c.send(ClientMessage{Type: MessageTypeSubscribe, MatchCode: "ZZZ999"})
	msg := c.next()
	assert.Equal(t, MessageTypeError, msg.Type)

	c.send(ClientMessage{Type: MessageTypeSubscribe, MatchCode: "bad"})
	msg = c.next()
	assert.Equal(t, MessageTypeError, msg.Type)
	assert.Zero(t, hub.SubscriberCount("ZZZ999"))
}

func TestPingAndUnsubscribe(t *testing.T) {
	hub := startHub(t)
	c := dial(t, hub, staticViews{"ABC234": {PublicCode: "ABC234"}})

	c.send(ClientMessage{Type: MessageTypePing})
	assert.Equal(t, MessageTypePong, c.next().Type)

	c.send(ClientMessage{Type: MessageTypeSubscribe, MatchCode: "ABC234"})
	assert.Equal(t, MessageTypeSubscribed, c.next().Type)
	assert.Equal(t, MessageTypeMatchUpdate, c.next().Type)

	c.send(ClientMessage{Type: MessageTypeUnsubscribe, MatchCode: "ABC234"})
	assert.Equal(t, MessageTypeUnsubbed, c.next().Type)
	require.Eventually(t, func() bool { return hub.SubscriberCount("ABC234") == 0 }, time.Second, 10*time.Millisecond)
}

func TestDisconnectUnregisters(t *testing.T) {
	hub := startHub(t)
	c := dial(t, hub, nil)
	require.Eventually(t, func() bool { return hub.TotalConnections() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, c.conn.Close())
	require.Eventually(t, func() bool { return hub.TotalConnections() == 0 }, time.Second, 10*time.Millisecond)
}
