package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagent-dev/kagent/go-chat/pkg/session"
)

func TestDialRejectsSecondBidiSession(t *testing.T) {
	state := session.NewState("app", "user", "sess")
	state.MarkBidiUsed()

	// No network attempt is made; the guard fires first.
	_, err := Dial(context.Background(), "ws://127.0.0.1:1", state, logr.Discard())
	assert.ErrorIs(t, err, ErrBidiRestartUnsupported)
}

func TestLiveSessionRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan map[string]any, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/run_live", r.URL.Path)
		assert.Equal(t, "app", r.URL.Query().Get("app_name"))
		assert.Equal(t, "user", r.URL.Query().Get("user_id"))
		assert.Equal(t, "sess", r.URL.Query().Get("session_id"))

		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var frame map[string]any
		require.NoError(t, json.Unmarshal(data, &frame))
		received <- frame

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"id":"e1"}`)))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	state := session.NewState("app", "user", "sess")
	s, err := Dial(context.Background(), wsURL, state, logr.Discard())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SendBlob("audio/pcm", []byte{1, 2, 3}))
	select {
	case frame := <-received:
		blob := frame["blob"].(map[string]any)
		assert.Equal(t, "audio/pcm", blob["mimeType"])
		assert.Equal(t, "AQID", blob["data"])
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the blob frame")
	}

	select {
	case chunk := <-s.Recv():
		assert.JSONEq(t, `{"id":"e1"}`, string(chunk))
	case <-time.After(5 * time.Second):
		t.Fatal("no chunk received from server")
	}

	// Recv closes when the server finishes the sub-session.
	select {
	case _, open := <-s.Recv():
		assert.False(t, open)
	case <-time.After(5 * time.Second):
		t.Fatal("recv channel never closed")
	}

	require.NoError(t, s.Close())
	assert.NoError(t, s.Close(), "second close is a no-op")
	assert.True(t, state.BidiUsed())
}
