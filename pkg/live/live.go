package live

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"

	"github.com/kagent-dev/kagent/go-chat/pkg/session"
)

// ErrBidiRestartUnsupported is returned when a session tries to open a
// second bidirectional sub-session. The backend cannot restart bidirectional
// streaming within a session; callers surface a warning instead of silently
// reconnecting.
var ErrBidiRestartUnsupported = errors.New("restarting bidirectional streaming is not supported; start a new session")

// Session is one bidirectional (audio/video) sub-session over a websocket.
// At most one is permitted per logical chat session.
type Session struct {
	conn   *websocket.Conn
	logger logr.Logger

	recv      chan []byte
	closeOnce sync.Once
	closeErr  error
}

// Dial opens the bidirectional channel for state's session. wsBaseURL is the
// ws:// or wss:// server base. Fails with ErrBidiRestartUnsupported when the
// session has already used its sub-session.
func Dial(ctx context.Context, wsBaseURL string, state *session.State, logger logr.Logger) (*Session, error) {
	if !state.MarkBidiUsed() {
		return nil, ErrBidiRestartUnsupported
	}

	q := url.Values{}
	q.Set("app_name", state.AppName())
	q.Set("user_id", state.UserID())
	q.Set("session_id", state.SessionID())
	endpoint := fmt.Sprintf("%s/run_live?%s", wsBaseURL, q.Encode())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial live endpoint: %w", err)
	}

	s := &Session{
		conn:   conn,
		logger: logger,
		recv:   make(chan []byte, 10),
	}
	go s.readLoop()
	return s, nil
}

// Recv returns the channel of raw chunks from the server, in arrival order.
// The channel closes when the connection ends.
func (s *Session) Recv() <-chan []byte {
	return s.recv
}

// SendBlob sends one media frame to the server.
func (s *Session) SendBlob(mimeType string, data []byte) error {
	frame := map[string]any{
		"blob": map[string]any{
			"mimeType": mimeType,
			"data":     base64.StdEncoding.EncodeToString(data),
		},
	}
	if err := s.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("failed to send blob frame: %w", err)
	}
	return nil
}

// Close tears the sub-session down. Safe to call multiple times; closing an
// already-closed session is a no-op.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

func (s *Session) readLoop() {
	defer close(s.recv)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.V(1).Info("Live connection closed", "reason", err.Error())
			}
			return
		}
		s.recv <- data
	}
}
