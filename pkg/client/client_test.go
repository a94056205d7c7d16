package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagent-dev/kagent/go-chat/pkg/eval"
	"github.com/kagent-dev/kagent/go-chat/pkg/event"
)

func TestRunSSE(t *testing.T) {
	var gotReq RunRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/run_sse", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "text/event-stream")
		// Comment lines, event fields, and blank lines must be ignored.
		_, _ = w.Write([]byte(": keepalive\n"))
		_, _ = w.Write([]byte("event: message\n"))
		_, _ = w.Write([]byte("data: {\"id\":\"e1\"}\n\n"))
		_, _ = w.Write([]byte("data: {\"id\":\"e2\"}\n\n"))
		_, _ = w.Write([]byte("data:\n\n"))
	}))
	defer server.Close()

	c := New(server.URL)
	ch, err := c.RunSSE(context.Background(), &RunRequest{
		AppName:   "app",
		UserID:    "user",
		SessionID: "sess",
	})
	require.NoError(t, err)

	var chunks []string
	for chunk := range ch {
		chunks = append(chunks, string(chunk))
	}
	assert.Equal(t, []string{`{"id":"e1"}`, `{"id":"e2"}`}, chunks)
	assert.True(t, gotReq.Streaming)
	assert.Equal(t, "app", gotReq.AppName)
}

func TestRunDecodesEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/run", r.URL.Path)
		var req RunRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Streaming)
		_, _ = w.Write([]byte(`[{"id":"e1","author":"model"},{"id":"e2"}]`))
	}))
	defer server.Close()

	events, err := New(server.URL).Run(context.Background(), &RunRequest{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e1", events[0].ID)
	assert.Equal(t, "model", events[0].Author)
}

func TestGetArtifactVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apps/app/users/user/sessions/sess/artifacts/a1/versions/0", r.URL.Path)
		_, _ = w.Write([]byte(`{"inlineData":{"data":"aGVsbG8","mimeType":"image/png"}}`))
	}))
	defer server.Close()

	// URL-safe unpadded base64 passes through untouched.
	data, mimeType, err := New(server.URL).GetArtifactVersion(context.Background(), "user", "app", "sess", "a1", "0")
	require.NoError(t, err)
	assert.Equal(t, "aGVsbG8", data)
	assert.Equal(t, "image/png", mimeType)
}

func TestClientErrorOnFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := New(server.URL).GetSession(context.Background(), "user", "app", "missing")
	require.Error(t, err)
	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, http.StatusNotFound, clientErr.StatusCode)
	assert.Contains(t, clientErr.Body, "session not found")
}

func TestBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"sess"}`))
	}))
	defer server.Close()

	_, err := New(server.URL, WithToken("secret")).GetSession(context.Background(), "user", "app", "sess")
	require.NoError(t, err)
}

func TestGetSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apps/app/users/user/sessions/sess", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"id": "sess",
			"appName": "app",
			"userId": "user",
			"events": [{"id":"e1","content":{"parts":[{"text":"hi"}]}}]
		}`))
	}))
	defer server.Close()

	session, err := New(server.URL).GetSession(context.Background(), "user", "app", "sess")
	require.NoError(t, err)
	assert.Equal(t, "sess", session.ID)
	require.Len(t, session.Events, 1)
	assert.Equal(t, "hi", session.Events[0].Content.Parts[0].Text)
}

func TestImportSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apps/app/users/user/sessions/import", r.URL.Path)
		var body map[string][]event.Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body["events"], 1)
		_, _ = w.Write([]byte(`{"id":"imported"}`))
	}))
	defer server.Close()

	session, err := New(server.URL).ImportSession(context.Background(), "user", "app", []event.Event{{ID: "e1"}})
	require.NoError(t, err)
	assert.Equal(t, "imported", session.ID)
}

func TestEvalCaseRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apps/app/eval_sets/set1/evals/case1", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"evalId":"case1","conversation":[]}`))
		case http.MethodPut:
			var c eval.Case
			require.NoError(t, json.NewDecoder(r.Body).Decode(&c))
			assert.Equal(t, "case1", c.EvalID)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}))
	defer server.Close()

	c := New(server.URL)
	evalCase, err := c.GetEvalCase(context.Background(), "app", "set1", "case1")
	require.NoError(t, err)
	assert.Equal(t, "case1", evalCase.EvalID)

	require.NoError(t, c.UpdateEvalCase(context.Background(), "app", "set1", evalCase))
}
