package artifact

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/go-logr/logr"

	"github.com/kagent-dev/kagent/go-chat/pkg/event"
	"github.com/kagent-dev/kagent/go-chat/pkg/part"
	"github.com/kagent-dev/kagent/go-chat/pkg/session"
	"github.com/kagent-dev/kagent/go-chat/pkg/transcript"
)

// Fetcher loads one artifact version from the backend. Data is returned as
// base64 (possibly URL-safe, unpadded) plus its MIME type.
type Fetcher interface {
	GetArtifactVersion(ctx context.Context, userID, appName, sessionID, artifactID, versionID string) (data, mimeType string, err error)
}

var reportedSuffixPattern = regexp.MustCompile(`(?i)\s*tool reported:?$`)

// Resolver turns artifact-delta references into pending placeholder messages
// and resolves them asynchronously. Resolutions complete in arbitrary order
// and are matched back to their placeholder by artifact id only, so
// concurrent insertions and removals elsewhere in the transcript cannot
// corrupt an unrelated slot.
type Resolver struct {
	fetcher   Fetcher
	builder   *transcript.Builder
	artifacts *transcript.ArtifactSet
	state     *session.State
	logger    logr.Logger

	wg sync.WaitGroup
}

// NewResolver creates a resolver writing into builder and artifacts.
func NewResolver(fetcher Fetcher, builder *transcript.Builder, artifacts *transcript.ArtifactSet, state *session.State, logger logr.Logger) *Resolver {
	return &Resolver{
		fetcher:   fetcher,
		builder:   builder,
		artifacts: artifacts,
		state:     state,
		logger:    logger,
	}
}

// Observe walks the artifact delta of ev, inserting one placeholder per
// referenced (artifactID, versionID) pair and resolving each on its own
// goroutine.
func (r *Resolver) Observe(ctx context.Context, ev *event.Event) {
	for artifactID, versionID := range ev.ArtifactDelta() {
		r.render(ctx, artifactID, versionID, ev)
	}
}

func (r *Resolver) render(ctx context.Context, artifactID, versionID string, ev *event.Event) {
	toolName := inferToolName(ev)

	// A readable placeholder instead of an empty bubble while fetching.
	r.builder.InsertBeforeLoading(&transcript.Message{
		Role:              transcript.RoleBot,
		Text:              "Using " + toolName + "…",
		ToolName:          toolName,
		PendingArtifact:   true,
		PendingArtifactID: artifactID,
	})

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.resolve(ctx, artifactID, versionID, toolName)
	}()
}

func (r *Resolver) resolve(ctx context.Context, artifactID, versionID, toolName string) {
	data, mimeType, err := r.fetcher.GetArtifactVersion(ctx, r.state.UserID(), r.state.AppName(), r.state.SessionID(), artifactID, versionID)
	if err != nil {
		r.logger.Error(err, "Artifact fetch failed", "artifactId", artifactID, "versionId", versionID)
		// A placeholder pending forever is worse than an inline failure note.
		r.builder.ReplacePendingArtifact(artifactID, &transcript.Message{
			Role:     transcript.RoleBot,
			Text:     "Failed to load artifact " + artifactID,
			ToolName: toolName,
		})
		return
	}

	dataURI := part.DataURI(data, mimeType)
	mediaType := part.MediaTypeFromMIME(mimeType)
	resolved := &transcript.Message{
		Role:     transcript.RoleBot,
		ToolName: toolName,
		InlineData: &transcript.InlineData{
			Name:      part.DefaultArtifactName(mimeType),
			Data:      dataURI,
			MIMEType:  mimeType,
			MediaType: mediaType,
		},
	}

	// The transcript may have been reset while the fetch was in flight; a
	// missing placeholder means the resolution is dropped silently.
	if !r.builder.ReplacePendingArtifact(artifactID, resolved) {
		r.logger.V(1).Info("Dropping artifact resolution, placeholder gone", "artifactId", artifactID)
		return
	}

	r.artifacts.Add(transcript.Artifact{
		ID:        artifactID,
		VersionID: versionID,
		Data:      dataURI,
		MIMEType:  mimeType,
		MediaType: mediaType,
	})
}

// Wait blocks until every in-flight resolution has completed. Test and
// shutdown helper.
func (r *Resolver) Wait() {
	r.wg.Wait()
}

// inferToolName guesses the producing tool from the event title or author so
// the placeholder reads "Using <tool>…".
func inferToolName(ev *event.Event) string {
	if ev == nil {
		return "tool"
	}
	if idx := strings.Index(ev.Title, "functionCall:"); idx >= 0 {
		name := ev.Title[idx+len("functionCall:"):]
		if cut := strings.Index(name, ":"); cut >= 0 {
			name = name[:cut]
		}
		if name != "" {
			return name
		}
	}
	if ev.Author != "" && ev.Author != "bot" {
		return ev.Author
	}
	raw := "tool"
	if ev.Actions != nil && ev.Actions.ToolName != "" {
		raw = ev.Actions.ToolName
	}
	return reportedSuffixPattern.ReplaceAllString(raw, "")
}
