package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/kagent-dev/kagent/go-chat/pkg/event"
)

// Session is a stored session as returned by the server: its identity plus
// the full event history.
type Session struct {
	ID      string         `json:"id"`
	AppName string         `json:"appName"`
	UserID  string         `json:"userId"`
	State   map[string]any `json:"state,omitempty"`
	Events  []event.Event  `json:"events"`
}

func sessionPath(appName, userID, sessionID string) string {
	return fmt.Sprintf("/apps/%s/users/%s/sessions/%s",
		url.PathEscape(appName), url.PathEscape(userID), url.PathEscape(sessionID))
}

// GetSession loads a stored session with its events.
func (c *Client) GetSession(ctx context.Context, userID, appName, sessionID string) (*Session, error) {
	var session Session
	if err := c.getJSON(ctx, sessionPath(appName, userID, sessionID), &session); err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	return &session, nil
}

// CreateSession creates a session with the given id.
func (c *Client) CreateSession(ctx context.Context, userID, appName, sessionID string) (*Session, error) {
	var session Session
	if err := c.postJSON(ctx, sessionPath(appName, userID, sessionID), map[string]any{}, &session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &session, nil
}

// ImportSession replays an exported event history into a fresh session.
func (c *Client) ImportSession(ctx context.Context, userID, appName string, events []event.Event) (*Session, error) {
	path := fmt.Sprintf("/apps/%s/users/%s/sessions/import",
		url.PathEscape(appName), url.PathEscape(userID))
	body := map[string]any{"events": events}
	var session Session
	if err := c.postJSON(ctx, path, body, &session); err != nil {
		return nil, fmt.Errorf("failed to import session: %w", err)
	}
	return &session, nil
}
