package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/kagent-dev/kagent/go-chat/pkg/event"
)

// RunRequest is one agent run turn. FunctionCallEventID is set only on
// resumption requests that answer a long-running function call.
type RunRequest struct {
	AppName             string         `json:"appName"`
	UserID              string         `json:"userId"`
	SessionID           string         `json:"sessionId"`
	NewMessage          *genai.Content `json:"newMessage"`
	Streaming           bool           `json:"streaming"`
	StateDelta          map[string]any `json:"stateDelta,omitempty"`
	FunctionCallEventID string         `json:"functionCallEventId,omitempty"`
}

// RunSSE starts a streaming run and returns the channel of raw data chunks.
// The channel closes when the server finishes the turn or the context is
// cancelled.
func (c *Client) RunSSE(ctx context.Context, req *RunRequest) (<-chan []byte, error) {
	req.Streaming = true
	resp, err := c.doRequest(ctx, http.MethodPost, "/run_sse", req)
	if err != nil {
		return nil, fmt.Errorf("failed to start streaming run: %w", err)
	}
	return streamSSE(resp.Body), nil
}

// Run executes a non-streaming run and returns the full event list.
func (c *Client) Run(ctx context.Context, req *RunRequest) ([]event.Event, error) {
	req.Streaming = false
	resp, err := c.doRequest(ctx, http.MethodPost, "/run", req)
	if err != nil {
		return nil, fmt.Errorf("run failed: %w", err)
	}
	defer resp.Body.Close()

	var events []event.Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("failed to decode run response: %w", err)
	}
	return events, nil
}
