package stream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"google.golang.org/genai"

	"github.com/kagent-dev/kagent/go-chat/pkg/event"
	"github.com/kagent-dev/kagent/go-chat/pkg/part"
	"github.com/kagent-dev/kagent/go-chat/pkg/transcript"
)

// Notifier surfaces stream-level problems to the user without touching the
// transcript. Decode failures and protocol errors go through here.
type Notifier interface {
	Notify(message string)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(string) {}

// EventHook observes events with side effects the ingestor does not own:
// artifact deltas and long-running tool calls.
type EventHook func(ctx context.Context, ev *event.Event)

// Ingestor turns raw stream chunks into transcript mutations and event index
// records. Chunks from one stream arrive strictly in order on one goroutine;
// spliced resumption events may arrive from another, so the streaming state
// is guarded.
type Ingestor struct {
	mu sync.Mutex

	builder  *transcript.Builder
	index    *event.Index
	notifier Notifier
	logger   logr.Logger

	// onArtifactDelta fires for events carrying an artifact delta,
	// onLongRunning for events carrying long-running tool-call ids.
	onArtifactDelta EventHook
	onLongRunning   EventHook

	// streaming is the single in-flight streaming message of the current
	// turn; accumulated is its raw unsanitized text, used for the
	// cumulative-versus-delta prefix check.
	streaming     *transcript.Message
	accumulated   string
	latestThought string
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithNotifier sets the user-facing notifier.
func WithNotifier(n Notifier) Option {
	return func(i *Ingestor) { i.notifier = n }
}

// WithArtifactHook sets the artifact-delta observer.
func WithArtifactHook(h EventHook) Option {
	return func(i *Ingestor) { i.onArtifactDelta = h }
}

// WithLongRunningHook sets the long-running tool-call observer.
func WithLongRunningHook(h EventHook) Option {
	return func(i *Ingestor) { i.onLongRunning = h }
}

// NewIngestor creates an ingestor bound to a transcript builder and event
// index.
func NewIngestor(builder *transcript.Builder, index *event.Index, logger logr.Logger, opts ...Option) *Ingestor {
	ing := &Ingestor{
		builder:  builder,
		index:    index,
		notifier: NopNotifier{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Ingest processes one raw chunk. Malformed chunks and protocol errors are
// surfaced through the notifier and never abort the stream: the returned
// error is always nil today, reserved for callers that may want to stop on
// future fatal conditions.
func (i *Ingestor) Ingest(ctx context.Context, raw []byte) error {
	var ev event.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		i.logger.Error(err, "Failed to decode stream chunk", "chunk", truncate(string(raw), 120))
		i.notifier.Notify("Received a malformed response chunk")
		return nil
	}

	i.IngestEvent(ctx, &ev)
	return nil
}

// IngestEvent processes one decoded event. Resumption responses are spliced
// through here so they mutate the transcript exactly as live chunks do.
func (i *Ingestor) IngestEvent(ctx context.Context, ev *event.Event) {
	i.mu.Lock()
	defer i.mu.Unlock()
	// Protocol-level failure: the stream keeps running, nothing is recorded.
	if ev.Error != "" {
		i.notifier.Notify(ev.Error)
		return
	}

	if ev.Content != nil {
		for _, p := range ev.Content.Parts {
			i.processPart(ctx, ev, p)
		}
		return
	}

	// Model/tool-level failure: recorded as an event and shown as a bot
	// message, then the stream continues.
	if ev.ErrorMessage != "" {
		i.processErrorMessage(ev)
	}
}

// Complete marks the end of a turn: the thinking signal returns to idle, the
// streaming message is sealed, and a leftover loading placeholder is removed.
func (i *Ingestor) Complete() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.builder.SetThinking(false)
	i.builder.RemoveLoading()
	i.streaming = nil
	i.accumulated = ""
	i.latestThought = ""
}

// Fail marks an unexpected transport failure. Partial content stays in the
// transcript; only the thinking signal is rolled back.
func (i *Ingestor) Fail(err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.logger.Error(err, "Stream failed")
	i.builder.SetThinking(false)
	i.streaming = nil
	i.accumulated = ""
	i.latestThought = ""
}

func (i *Ingestor) processErrorMessage(ev *event.Event) {
	ev.SetTitleFromPart(nil)
	i.index.Record(ev)
	i.builder.InsertBeforeLoading(&transcript.Message{
		Role:    transcript.RoleBot,
		EventID: ev.ID,
		Text:    ev.ErrorMessage,
	})
}

func (i *Ingestor) processPart(ctx context.Context, ev *event.Event, p *genai.Part) {
	if p == nil {
		return
	}

	if p.Text != "" {
		i.processText(ev, p)
		return
	}

	if p.Thought {
		// Thought part without a snapshot yet; the model is still thinking.
		i.builder.SetThinking(true)
		return
	}

	// Non-text, non-thought parts terminate the active streaming message and
	// become discrete messages of their own.
	i.builder.SetThinking(false)
	i.streaming = nil
	i.accumulated = ""

	i.recordEvent(ev, p)

	role := transcript.RoleBot
	if ev.Author == "user" {
		role = transcript.RoleUser
	}
	i.storeMessage(ctx, ev, p, role)
}

// processText applies the per-update cumulative-versus-delta heuristic. The
// server may switch encodings between turns, so the mode is never latched:
// a chunk that extends the accumulated text is a cumulative snapshot, any
// other chunk is a delta token.
func (i *Ingestor) processText(ev *event.Event, p *genai.Part) {
	newChunk := p.Text

	if p.Thought {
		// Identical consecutive thought snapshots are suppressed; a distinct
		// one becomes its own message and keeps the thinking signal on.
		if newChunk != i.latestThought {
			i.recordEvent(ev, p)
			i.builder.InsertBeforeLoading(&transcript.Message{
				Role:    transcript.RoleBot,
				EventID: ev.ID,
				Text:    part.ProcessThoughtText(newChunk),
				Thought: true,
			})
		}
		i.latestThought = newChunk
		i.builder.SetThinking(true)
		return
	}

	if i.streaming == nil {
		// First non-thought token of the turn: the loading placeholder gives
		// way to the streaming message.
		i.builder.RemoveLoading()
		i.builder.SetThinking(false)
		i.accumulated = newChunk
		i.streaming = &transcript.Message{
			Role:            transcript.RoleBot,
			EventID:         ev.ID,
			Text:            part.ProcessThoughtText(newChunk),
			RenderedContent: ev.RenderedContent(),
		}
		i.builder.InsertBeforeLoading(i.streaming)
		i.recordEvent(ev, p)
		return
	}

	if strings.HasPrefix(newChunk, i.accumulated) {
		i.accumulated = newChunk
	} else {
		i.accumulated += newChunk
	}
	i.streaming.Text = part.SanitizeText(i.accumulated)
	if rc := ev.RenderedContent(); rc != "" {
		i.streaming.RenderedContent = rc
	}
	i.recordEvent(ev, p)
}

// storeMessage appends the discrete message for a non-text part and fires
// the side-channel hooks carried by its event.
func (i *Ingestor) storeMessage(ctx context.Context, ev *event.Event, p *genai.Part, role transcript.Role) {
	if msg := MessageFromPart(ev, p, role); msg != nil {
		i.builder.InsertBeforeLoading(msg)
	}

	// Hooks run after the part's own message so an artifact placeholder
	// lands below the tool response that produced it.
	if len(ev.LongRunningToolIDs) > 0 && i.onLongRunning != nil {
		i.onLongRunning(ctx, ev)
	}
	if len(ev.ArtifactDelta()) > 0 && i.onArtifactDelta != nil {
		i.onArtifactDelta(ctx, ev)
	}
}

// MessageFromPart builds the discrete transcript message for a single part.
// Text parts are included so offline producers (eval projection, stored
// sessions) can reuse the same conversion; returns nil for empty parts.
func MessageFromPart(ev *event.Event, p *genai.Part, role transcript.Role) *transcript.Message {
	msg := &transcript.Message{Role: role}
	if ev != nil {
		msg.EventID = ev.ID
	}

	switch part.KindOf(p) {
	case part.KindText:
		msg.Text = part.SanitizeText(p.Text)
		msg.Thought = p.Thought
		if ev != nil {
			msg.RenderedContent = ev.RenderedContent()
		}
	case part.KindInlineData:
		encoded := base64.StdEncoding.EncodeToString(p.InlineData.Data)
		msg.InlineData = &transcript.InlineData{
			DisplayName: p.InlineData.DisplayName,
			Data:        part.DataURI(encoded, p.InlineData.MIMEType),
			MIMEType:    p.InlineData.MIMEType,
			MediaType:   part.MediaTypeFromMIME(p.InlineData.MIMEType),
		}
	case part.KindFunctionCall:
		msg.FunctionCall = p.FunctionCall
	case part.KindFunctionResponse:
		msg.FunctionResponse = p.FunctionResponse
	case part.KindExecutableCode:
		msg.ExecutableCode = p.ExecutableCode
	case part.KindCodeExecutionResult:
		msg.CodeExecutionResult = p.CodeExecutionResult
	default:
		return nil
	}
	return msg
}

func (i *Ingestor) recordEvent(ev *event.Event, p *genai.Part) {
	ev.SetTitleFromPart(p)
	i.index.Record(ev)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
