package host

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xfeldman/overlay/internal/bridge"
	"github.com/xfeldman/overlay/internal/config"
	"github.com/xfeldman/overlay/internal/envelope"
	"github.com/xfeldman/overlay/internal/feed"
	"github.com/xfeldman/overlay/internal/registry"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.HomeEnv, dir)
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := config.DefaultConfig()
	cfg.Bridge.ListenAddr = "127.0.0.1:0"
	cfg.Log.File = filepath.Join(dir, "logs", "overlay.log")
	return cfg
}

func nextEvent(t *testing.T, ch <-chan feed.Event) feed.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for feed event")
		return feed.Event{}
	}
}

func TestHostRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	h, err := New(cfg, nil)
	require.NoError(t, err)

	events, unsub := h.Feed.Subscribe()
	defer unsub()

	require.NoError(t, h.Start(context.Background()))
	ev := nextEvent(t, events)
	assert.Equal(t, bridge.EventStatus, ev.Name)

	st := h.Status()
	assert.True(t, st.Listening)
	assert.False(t, st.Connected)
	assert.ErrorIs(t, h.Send("early"), bridge.ErrNotConnected)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+st.Addr+"/", nil)
	require.NoError(t, err)
	defer conn.Close()

	ev = nextEvent(t, events)
	assert.Equal(t, bridge.StatusConnected, ev.Payload)
	st = h.Status()
	assert.True(t, st.Connected)
	assert.NotEmpty(t, st.SessionID)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"role":"assistant","content":"hello","timestamp":"2026-01-01T00:00:00Z"}`)))
	ev = nextEvent(t, events)
	require.Equal(t, bridge.EventMessage, ev.Name)
	assert.Equal(t, "hello", ev.Payload.(envelope.AgentEnvelope).Content)

	require.NoError(t, h.Send("hi agent"))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"user_input","content":"hi agent"}`, string(data))

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	ev = nextEvent(t, events)
	assert.Equal(t, bridge.StatusDisconnected, ev.Payload)

	assert.Len(t, h.Feed.Recent(10), 4)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.Close(ctx))

	db, err := registry.Open(cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()
	sessions, err := db.ListSessions(0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, st.SessionID, sessions[0].ID)
	assert.Equal(t, bridge.EndClosed, sessions[0].EndReason)
	assert.Equal(t, int64(1), sessions[0].Received)
	assert.Equal(t, int64(1), sessions[0].Sent)

	assert.FileExists(t, cfg.Log.File)
}

func TestHostStatusDuringStart(t *testing.T) {
	h, err := New(testConfig(t), nil)
	require.NoError(t, err)
	defer h.Close(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 1000 {
			h.Status()
		}
	}()
	require.NoError(t, h.Start(context.Background()))
	<-done

	st := h.Status()
	assert.True(t, st.Listening)
	assert.NotEqual(t, "127.0.0.1:0", st.Addr)
}

func TestHostWithoutRegistry(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBPath = ""
	h, err := New(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, h.DB)

	sessions, err := h.Sessions(10)
	require.NoError(t, err)
	assert.Empty(t, sessions)
	require.NoError(t, h.Close(context.Background()))
}

func TestHostBindFailureReachesFeed(t *testing.T) {
	first, err := New(testConfig(t), nil)
	require.NoError(t, err)
	require.NoError(t, first.Start(context.Background()))
	defer first.Close(context.Background())

	cfg := testConfig(t)
	cfg.Bridge.ListenAddr = first.Status().Addr
	second, err := New(cfg, nil)
	require.NoError(t, err)
	defer second.Close(context.Background())

	require.Error(t, second.Start(context.Background()))
	recent := second.Feed.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, bridge.EventError, recent[0].Name)
	assert.Contains(t, recent[0].Payload, "Failed to start server: ")
	assert.False(t, second.Status().Listening)
}

func TestHostRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Log.Level = "loud"
	_, err := New(cfg, nil)
	assert.Error(t, err)
}
