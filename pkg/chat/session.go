// Package chat wires the streaming-transcript engine together: one Session
// owns the transcript builder, event index, artifact resolver, and
// long-running action coordinator for a single backend session.
package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"google.golang.org/genai"

	"github.com/kagent-dev/kagent/go-chat/pkg/artifact"
	"github.com/kagent-dev/kagent/go-chat/pkg/client"
	"github.com/kagent-dev/kagent/go-chat/pkg/event"
	"github.com/kagent-dev/kagent/go-chat/pkg/oauth"
	"github.com/kagent-dev/kagent/go-chat/pkg/session"
	"github.com/kagent-dev/kagent/go-chat/pkg/stream"
	"github.com/kagent-dev/kagent/go-chat/pkg/telemetry"
	"github.com/kagent-dev/kagent/go-chat/pkg/transcript"
)

// Config carries everything a Session needs.
type Config struct {
	Client    *client.Client
	AppName   string
	UserID    string
	SessionID string

	// RedirectURI is this client's base URL, substituted into OAuth
	// authorization URIs. Defaults to the API client's base URL.
	RedirectURI string

	// Authorizer drives OAuth exchanges for long-running tool calls. When
	// nil, OAuth calls stay queued for external resolution.
	Authorizer oauth.Authorizer

	// Notifier surfaces stream-level problems. Optional.
	Notifier stream.Notifier

	Logger logr.Logger
}

// Session is the engine for one chat session. Turns run one at a time on the
// caller's goroutine; artifact and OAuth resolutions complete asynchronously
// and rejoin through id-matched transcript mutations.
type Session struct {
	client      *client.Client
	state       *session.State
	builder     *transcript.Builder
	index       *event.Index
	artifacts   *transcript.ArtifactSet
	ingestor    *stream.Ingestor
	resolver    *artifact.Resolver
	coordinator *oauth.Coordinator
	logger      logr.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSession builds and wires a session engine.
func NewSession(cfg Config) *Session {
	s := &Session{
		client:    cfg.Client,
		state:     session.NewState(cfg.AppName, cfg.UserID, cfg.SessionID),
		builder:   transcript.NewBuilder(),
		index:     event.NewIndex(),
		artifacts: transcript.NewArtifactSet(),
		logger:    cfg.Logger,
	}

	s.resolver = artifact.NewResolver(cfg.Client, s.builder, s.artifacts, s.state, cfg.Logger)

	redirectURI := cfg.RedirectURI
	if redirectURI == "" && cfg.Client != nil {
		redirectURI = cfg.Client.BaseURL()
	}
	if cfg.Authorizer != nil {
		s.coordinator = oauth.NewCoordinator(cfg.Authorizer, cfg.Client, s.state, s.splice, redirectURI, cfg.Logger)
	}

	opts := []stream.Option{stream.WithArtifactHook(s.resolver.Observe)}
	if s.coordinator != nil {
		opts = append(opts, stream.WithLongRunningHook(s.coordinator.Observe))
	}
	if cfg.Notifier != nil {
		opts = append(opts, stream.WithNotifier(cfg.Notifier))
	}
	s.ingestor = stream.NewIngestor(s.builder, s.index, cfg.Logger, opts...)

	return s
}

// Transcript returns the message builder for rendering.
func (s *Session) Transcript() *transcript.Builder { return s.builder }

// Events returns the addressable event index.
func (s *Session) Events() *event.Index { return s.index }

// Artifacts returns the resolved artifact set.
func (s *Session) Artifacts() *transcript.ArtifactSet { return s.artifacts }

// State returns the shared session-state handle.
func (s *Session) State() *session.State { return s.state }

// Coordinator returns the long-running action coordinator, or nil when no
// authorizer was configured.
func (s *Session) Coordinator() *oauth.Coordinator { return s.coordinator }

// WaitArtifacts blocks until every in-flight artifact resolution has landed.
func (s *Session) WaitArtifacts() { s.resolver.Wait() }

// Send runs one user turn: the user messages and a loading placeholder are
// pushed, the streaming run is issued, and every chunk is ingested in
// arrival order until the stream ends. Blocks for the duration of the turn.
func (s *Session) Send(ctx context.Context, text string, attachments []transcript.Attachment) error {
	text = strings.TrimSpace(text)
	if text == "" && len(attachments) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.setCancel(cancel)
	defer s.clearCancel()

	telemetry.SetTurnSpanAttributes(ctx, map[string]string{
		"chat.app_name":   s.state.AppName(),
		"chat.session_id": s.state.SessionID(),
	})

	if text != "" {
		s.builder.Append(&transcript.Message{Role: transcript.RoleUser, Text: text})
	}
	if len(attachments) > 0 {
		s.builder.Append(&transcript.Message{Role: transcript.RoleUser, Attachments: attachments})
	}
	s.builder.EnsureLoading()
	s.builder.SetThinking(true)

	req := &client.RunRequest{
		AppName:    s.state.AppName(),
		UserID:     s.state.UserID(),
		SessionID:  s.state.SessionID(),
		NewMessage: userContent(text, attachments),
		StateDelta: s.state.TakeStateDelta(),
	}

	ch, err := s.client.RunSSE(ctx, req)
	if err != nil {
		s.ingestor.Fail(err)
		s.builder.RemoveLoading()
		return err
	}

	for raw := range ch {
		if err := s.ingestor.Ingest(ctx, raw); err != nil {
			return err
		}
	}
	s.ingestor.Complete()
	return nil
}

// Cancel aborts the active turn, if any. Idempotent: cancelling an
// already-finished or already-cancelled turn is a no-op.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Reset drops the transcript and event index. In-flight resolutions that
// land afterwards find no placeholder and are dropped.
func (s *Session) Reset() {
	s.Cancel()
	s.builder.Reset()
	s.index.Reset()
}

// Hydrate replays a stored session's events into the transcript: every part
// becomes a discrete message, as the events are complete rather than
// streamed.
func (s *Session) Hydrate(ctx context.Context) error {
	stored, err := s.client.GetSession(ctx, s.state.UserID(), s.state.AppName(), s.state.SessionID())
	if err != nil {
		return err
	}
	for idx := range stored.Events {
		ev := &stored.Events[idx]
		if ev.Content == nil {
			continue
		}
		role := transcript.RoleBot
		if ev.Author == "user" {
			role = transcript.RoleUser
		}
		for _, p := range ev.Content.Parts {
			ev.SetTitleFromPart(p)
			s.index.Record(ev)
			if msg := stream.MessageFromPart(ev, p, role); msg != nil {
				s.builder.InsertBeforeLoading(msg)
			}
		}
	}
	return nil
}

// splice feeds resumption events through the normal ingest path.
func (s *Session) splice(ctx context.Context, events []event.Event) {
	for idx := range events {
		s.ingestor.IngestEvent(ctx, &events[idx])
	}
}

func (s *Session) setCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = cancel
}

func (s *Session) clearCancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = nil
}

func userContent(text string, attachments []transcript.Attachment) *genai.Content {
	var parts []*genai.Part
	if text != "" {
		parts = append(parts, &genai.Part{Text: text})
	}
	for _, a := range attachments {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				DisplayName: a.Name,
				Data:        a.Data,
				MIMEType:    a.MIMEType,
			},
		})
	}
	return &genai.Content{Role: "user", Parts: parts}
}
