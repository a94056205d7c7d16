package artifact

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagent-dev/kagent/go-chat/pkg/event"
	"github.com/kagent-dev/kagent/go-chat/pkg/session"
	"github.com/kagent-dev/kagent/go-chat/pkg/transcript"
)

// gatedFetcher serves artifacts only after the test releases them, so
// completion order can be forced to differ from request order.
type gatedFetcher struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	data  map[string]string
	errs  map[string]error
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{
		gates: make(map[string]chan struct{}),
		data:  make(map[string]string),
		errs:  make(map[string]error),
	}
}

func (f *gatedFetcher) serve(artifactID, data string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[artifactID] = data
	f.gates[artifactID] = make(chan struct{})
}

func (f *gatedFetcher) fail(artifactID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[artifactID] = err
	f.gates[artifactID] = make(chan struct{})
}

func (f *gatedFetcher) release(artifactID string) {
	f.mu.Lock()
	gate := f.gates[artifactID]
	f.mu.Unlock()
	close(gate)
}

func (f *gatedFetcher) GetArtifactVersion(ctx context.Context, userID, appName, sessionID, artifactID, versionID string) (string, string, error) {
	f.mu.Lock()
	gate := f.gates[artifactID]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[artifactID]; err != nil {
		return "", "", err
	}
	return f.data[artifactID], "image/png", nil
}

func newTestResolver(fetcher Fetcher) (*Resolver, *transcript.Builder, *transcript.ArtifactSet) {
	builder := transcript.NewBuilder()
	artifacts := transcript.NewArtifactSet()
	state := session.NewState("app", "user", "sess")
	return NewResolver(fetcher, builder, artifacts, state, logr.Discard()), builder, artifacts
}

func deltaEvent(toolName string, delta map[string]string) *event.Event {
	return &event.Event{
		ID:      "ev-" + toolName,
		Author:  "model",
		Title:   "functionCall:" + toolName,
		Actions: &event.Actions{ArtifactDelta: delta},
	}
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestResolveOutOfOrder(t *testing.T) {
	fetcher := newGatedFetcher()
	fetcher.serve("a1", b64("first"))
	fetcher.serve("a2", b64("second"))
	fetcher.serve("a3", b64("third"))

	r, builder, artifacts := newTestResolver(fetcher)
	ctx := context.Background()

	r.Observe(ctx, deltaEvent("render_chart", map[string]string{"a1": "0"}))
	r.Observe(ctx, deltaEvent("render_chart", map[string]string{"a2": "0"}))
	r.Observe(ctx, deltaEvent("render_chart", map[string]string{"a3": "0"}))
	require.Equal(t, 3, builder.Len())

	// Completions arrive in reverse order; each must land in its own slot.
	fetcher.release("a3")
	fetcher.release("a2")
	fetcher.release("a1")
	r.Wait()

	require.Equal(t, 3, builder.Len())
	want := []string{b64("first"), b64("second"), b64("third")}
	for i, data := range want {
		m := builder.At(i)
		require.NotNil(t, m.InlineData, "message %d", i)
		assert.False(t, m.PendingArtifact)
		assert.Equal(t, "data:image/png;base64,"+data, m.InlineData.Data)
	}
	assert.Equal(t, 3, artifacts.Len())
}

func TestResolveSurvivesUnrelatedRemoval(t *testing.T) {
	fetcher := newGatedFetcher()
	fetcher.serve("a1", b64("payload"))

	r, builder, _ := newTestResolver(fetcher)
	ctx := context.Background()

	builder.Append(&transcript.Message{Role: transcript.RoleUser, Text: "before"})
	r.Observe(ctx, deltaEvent("render_chart", map[string]string{"a1": "0"}))

	// The message above the placeholder disappears while the fetch is in
	// flight; resolution must still find the placeholder by id.
	builder.Remove(0)
	fetcher.release("a1")
	r.Wait()

	require.Equal(t, 1, builder.Len())
	m := builder.At(0)
	require.NotNil(t, m.InlineData)
	assert.Equal(t, "data:image/png;base64,"+b64("payload"), m.InlineData.Data)
}

func TestResolveDroppedAfterReset(t *testing.T) {
	fetcher := newGatedFetcher()
	fetcher.serve("a1", b64("late"))

	r, builder, artifacts := newTestResolver(fetcher)
	ctx := context.Background()

	r.Observe(ctx, deltaEvent("render_chart", map[string]string{"a1": "0"}))
	builder.Reset()
	fetcher.release("a1")
	r.Wait()

	// Placeholder is gone, so the resolution is dropped without inserting.
	assert.Equal(t, 0, builder.Len())
	assert.Equal(t, 0, artifacts.Len())
}

func TestResolveFetchFailure(t *testing.T) {
	fetcher := newGatedFetcher()
	fetcher.fail("a1", fmt.Errorf("backend unavailable"))

	r, builder, artifacts := newTestResolver(fetcher)
	ctx := context.Background()

	r.Observe(ctx, deltaEvent("render_chart", map[string]string{"a1": "0"}))
	fetcher.release("a1")
	r.Wait()

	require.Equal(t, 1, builder.Len())
	m := builder.At(0)
	assert.False(t, m.PendingArtifact)
	assert.Nil(t, m.InlineData)
	assert.Equal(t, "Failed to load artifact a1", m.Text)
	assert.Equal(t, 0, artifacts.Len())
}

func TestPlaceholderText(t *testing.T) {
	fetcher := newGatedFetcher()
	fetcher.serve("a1", b64("x"))

	r, builder, _ := newTestResolver(fetcher)
	r.Observe(context.Background(), deltaEvent("render_chart", map[string]string{"a1": "0"}))

	m := builder.At(0)
	assert.True(t, m.PendingArtifact)
	assert.Equal(t, "a1", m.PendingArtifactID)
	assert.Equal(t, "Using render_chart…", m.Text)

	fetcher.release("a1")
	r.Wait()
}

func TestInferToolName(t *testing.T) {
	tests := []struct {
		name string
		ev   *event.Event
		want string
	}{
		{
			name: "nil event",
			ev:   nil,
			want: "tool",
		},
		{
			name: "from function call title",
			ev:   &event.Event{Title: "functionCall:generate_image"},
			want: "generate_image",
		},
		{
			name: "from author",
			ev:   &event.Event{Author: "image_agent"},
			want: "image_agent",
		},
		{
			name: "bot author ignored",
			ev:   &event.Event{Author: "bot"},
			want: "tool",
		},
		{
			name: "reported suffix stripped",
			ev:   &event.Event{Author: "bot", Actions: &event.Actions{ToolName: "chart Tool reported:"}},
			want: "chart",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferToolName(tt.ev))
		})
	}
}
