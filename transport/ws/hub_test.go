package ws

import (
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

	"github.com/nathoo/idlecore/engine"
	"github.com/nathoo/idlecore/engine/events"
	"github.com/nathoo/idlecore/loader"
	"github.com/nathoo/idlecore/storage/memory"
)

func newHub(t *testing.T, withChanges bool) (*Hub, *engine.Game, *httptest.Server) {
	t.Helper()
	defs, err := loader.Default()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g, err := engine.New(defs, engine.Options{Seed: 1, Saves: memory.NewRepo(), Logger: logger})
	require.NoError(t, err)
	require.NoError(t, g.Start())
	t.Cleanup(func() { _ = g.Stop(context.Background()) })

	hub := NewHub(g, logger)
	hub.Attach(withChanges)
	t.Cleanup(hub.Detach)

	srv := httptest.NewServer(http.HandlerFunc(hub.Handle))
	t.Cleanup(srv.Close)
	return hub, g, srv
}

func dial(t *testing.T, hub *Hub, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	want := hub.Clients() + 1
	conn, _, err := websocket.DefaultDialer.Dial(websocketURL(srv.URL), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return hub.Clients() == want }, time.Second, 5*time.Millisecond)
	return conn
}

func websocketURL(httpURL string) string {
	if strings.HasPrefix(httpURL, "https://") {
		return "wss://" + strings.TrimPrefix(httpURL, "https://")
	}
	return "ws://" + strings.TrimPrefix(httpURL, "http://")
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHandleSendsSnapshot(t *testing.T) {
	hub, g, srv := newHub(t, false)
	conn := dial(t, hub, srv)

	msg := readMessage(t, conn)
	assert.Equal(t, TypeSnapshot, msg.Type)
	require.NotNil(t, msg.State)
	want := g.State()
	assert.Equal(t, want.ActiveCharacterID, msg.State.ActiveCharacterID)
	assert.Equal(t, want.Party.Len(), msg.State.Party.Len())
}

func TestEventsAreForwarded(t *testing.T) {
	hub, g, srv := newHub(t, false)
	conn := dial(t, hub, srv)
	readMessage(t, conn) // snapshot

	g.Events().Publish(events.New(events.GameSaved, map[string]any{"slot": "autosave"}))

	msg := readMessage(t, conn)
	assert.Equal(t, TypeEvent, msg.Type)
	require.NotNil(t, msg.Event)
	assert.Equal(t, events.GameSaved, msg.Event.Type)
	assert.Equal(t, "autosave", msg.Event.Data["slot"])
}

func TestChangesAreForwarded(t *testing.T) {
	hub, g, srv := newHub(t, true)
	conn := dial(t, hub, srv)
	readMessage(t, conn)

	_, err := g.StartCombat()
	require.NoError(t, err)

	var sawEvent, sawChange bool
	for !(sawEvent && sawChange) {
		msg := readMessage(t, conn)
		switch msg.Type {
		case TypeEvent:
			if msg.Event.Type == events.EncounterStarted {
				sawEvent = true
			}
		case TypeChange:
			assert.NotEmpty(t, msg.Action)
			sawChange = true
		}
	}
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	hub, _, srv := newHub(t, false)
	a := dial(t, hub, srv)
	b := dial(t, hub, srv)
	readMessage(t, a)
	readMessage(t, b)

	hub.Broadcast(Message{Type: TypeChange, Action: "ping"})

	assert.Equal(t, "ping", readMessage(t, a).Action)
	assert.Equal(t, "ping", readMessage(t, b).Action)
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, _, srv := newHub(t, false)
	conn := dial(t, hub, srv)
	readMessage(t, conn)

	err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	require.NoError(t, err)
	conn.Close()

	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestDetachClosesClients(t *testing.T) {
	hub, g, srv := newHub(t, false)
	conn := dial(t, hub, srv)
	readMessage(t, conn)

	hub.Detach()
	assert.Equal(t, 0, hub.Clients())

	// nothing is forwarded after Detach
	g.Events().Publish(events.New(events.GameSaved, nil))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
}
