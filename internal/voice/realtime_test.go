package voice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receptionist-platform/internal/config"
)

func testRealtimeServer(t *testing.T, handle func(*websocket.Conn)) *WebSocketDialer {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(srv.Close)
	return NewWebSocketDialer(config.VoiceConfig{
		RealtimeURL: "ws" + strings.TrimPrefix(srv.URL, "http"),
		PublicKey:   "pub-key",
	})
}

func TestRealtimeSessionEventOrdering(t *testing.T) {
	dialer := testRealtimeServer(t, func(conn *websocket.Conn) {
		var start startFrame
		require.NoError(t, conn.ReadJSON(&start))
		assert.Equal(t, "start", start.Type)
		assert.Equal(t, "pub-key", start.PublicKey)
		assert.Equal(t, "asst-1", start.AssistantID)
		assert.Nil(t, start.Assistant)

		require.NoError(t, conn.WriteJSON(Event{Type: EventCallStart}))
		require.NoError(t, conn.WriteJSON(Event{Type: EventCallEnd}))
	})

	sess, err := dialer.Dial(context.Background())
	require.NoError(t, err)
	defer sess.Stop()

	require.NoError(t, sess.Start(context.Background(), StartOptions{AssistantID: "asst-1"}))

	first := waitEvent(t, sess.Events())
	second := waitEvent(t, sess.Events())
	assert.Equal(t, EventCallStart, first.Type)
	assert.Equal(t, EventCallEnd, second.Type)
}

func TestRealtimeSessionErrorEventFields(t *testing.T) {
	dialer := testRealtimeServer(t, func(conn *websocket.Conn) {
		var start startFrame
		require.NoError(t, conn.ReadJSON(&start))
		require.NotNil(t, start.Assistant)
		assert.Equal(t, "AI Assistant", start.Assistant.Name)

		require.NoError(t, conn.WriteJSON(Event{
			Type:       EventError,
			StatusCode: 403,
			ErrorMsg:   "forbidden",
		}))
	})

	sess, err := dialer.Dial(context.Background())
	require.NoError(t, err)
	defer sess.Stop()

	inline := DefaultInlineConfig()
	require.NoError(t, sess.Start(context.Background(), StartOptions{Inline: &inline}))

	ev := waitEvent(t, sess.Events())
	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, 403, ev.StatusCode)
	assert.Equal(t, "forbidden", ev.ErrorMsg)
}

func TestRealtimeSessionStopDeliversFinalFrames(t *testing.T) {
	dialer := testRealtimeServer(t, func(conn *websocket.Conn) {
		var start startFrame
		require.NoError(t, conn.ReadJSON(&start))
		require.NoError(t, conn.WriteJSON(Event{Type: EventCallStart}))

		// The platform confirms a stopped call with one last call-end frame
		// before completing the close handshake.
		conn.SetCloseHandler(func(code int, text string) error {
			require.NoError(t, conn.WriteJSON(Event{Type: EventCallEnd}))
			return conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, ""), time.Now().Add(time.Second))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	sess, err := dialer.Dial(context.Background())
	require.NoError(t, err)

	require.NoError(t, sess.Start(context.Background(), StartOptions{AssistantID: "asst-1"}))
	assert.Equal(t, EventCallStart, waitEvent(t, sess.Events()).Type)

	require.NoError(t, sess.Stop())

	ev := waitEvent(t, sess.Events())
	assert.Equal(t, EventCallEnd, ev.Type)

	select {
	case _, ok := <-sess.Events():
		assert.False(t, ok, "expected channel close after the final frame")
	case <-time.After(2 * time.Second):
		t.Fatal("event channel not closed after drain")
	}
}

func TestRealtimeSessionGuards(t *testing.T) {
	dialer := testRealtimeServer(t, func(conn *websocket.Conn) {
		var start startFrame
		conn.ReadJSON(&start)
		conn.ReadJSON(&map[string]any{})
	})

	sess, err := dialer.Dial(context.Background())
	require.NoError(t, err)
	defer sess.Stop()

	assert.ErrorIs(t, sess.SetMuted(true), ErrNotStarted)

	err = sess.Start(context.Background(), StartOptions{})
	assert.ErrorIs(t, err, ErrInvalidStartInput)

	inline := DefaultInlineConfig()
	err = sess.Start(context.Background(), StartOptions{AssistantID: "a", Inline: &inline})
	assert.ErrorIs(t, err, ErrInvalidStartInput)

	require.NoError(t, sess.Start(context.Background(), StartOptions{AssistantID: "asst-1"}))
	assert.ErrorIs(t, sess.Start(context.Background(), StartOptions{AssistantID: "asst-1"}), ErrAlreadyStarted)
	require.NoError(t, sess.SetMuted(true))

	require.NoError(t, sess.Stop())
	assert.ErrorIs(t, sess.SetMuted(false), ErrSessionClosed)
}

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "event channel closed early")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}
