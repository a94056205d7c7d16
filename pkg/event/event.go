package event

import (
	"encoding/json"

	"google.golang.org/genai"

	"github.com/kagent-dev/kagent/go-chat/pkg/part"
)

// Actions carries the side effects a backend event announces. ArtifactDelta
// maps artifact id to the version produced by this event.
type Actions struct {
	ArtifactDelta map[string]string `json:"artifactDelta,omitempty"`
	ToolName      string            `json:"toolName,omitempty"`
}

// actionsWire accepts both field casings the backend has emitted for the
// artifact delta. They are equivalent; camelCase wins when both are present.
type actionsWire struct {
	ArtifactDelta      map[string]string `json:"artifactDelta"`
	ArtifactDeltaSnake map[string]string `json:"artifact_delta"`
	ToolName           string            `json:"toolName"`
}

func (a *Actions) UnmarshalJSON(data []byte) error {
	var wire actionsWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	a.ArtifactDelta = wire.ArtifactDelta
	if a.ArtifactDelta == nil {
		a.ArtifactDelta = wire.ArtifactDeltaSnake
	}
	a.ToolName = wire.ToolName
	return nil
}

// SearchEntryPoint is the rendered-search payload within grounding metadata.
type SearchEntryPoint struct {
	RenderedContent string `json:"renderedContent,omitempty"`
}

// GroundingMetadata carries optional grounding attribution for an event.
type GroundingMetadata struct {
	SearchEntryPoint *SearchEntryPoint `json:"searchEntryPoint,omitempty"`
}

// Event is the durable record a stream chunk belongs to. It is immutable once
// its derived title has been computed; the index holds it for the session's
// lifetime.
type Event struct {
	ID                 string             `json:"id"`
	Author             string             `json:"author,omitempty"`
	Content            *genai.Content     `json:"content,omitempty"`
	Actions            *Actions           `json:"actions,omitempty"`
	GroundingMetadata  *GroundingMetadata `json:"groundingMetadata,omitempty"`
	LongRunningToolIDs []string           `json:"longRunningToolIds,omitempty"`
	Error              string             `json:"error,omitempty"`
	ErrorMessage       string             `json:"errorMessage,omitempty"`
	Title              string             `json:"title,omitempty"`
}

// RenderedContent returns the grounding search rendered content, if any.
func (e *Event) RenderedContent() string {
	if e.GroundingMetadata == nil || e.GroundingMetadata.SearchEntryPoint == nil {
		return ""
	}
	return e.GroundingMetadata.SearchEntryPoint.RenderedContent
}

// ArtifactDelta returns the artifact-delta mapping, or nil when absent.
func (e *Event) ArtifactDelta() map[string]string {
	if e.Actions == nil {
		return nil
	}
	return e.Actions.ArtifactDelta
}

// SetTitleFromPart computes the derived title once, from the part that caused
// the event to be recorded.
func (e *Event) SetTitleFromPart(p *genai.Part) {
	if p != nil {
		e.Title = part.Title(p)
		return
	}
	if e.ErrorMessage != "" {
		e.Title = "errorMessage:" + e.ErrorMessage
	}
}

// FunctionCallsByID returns the event's FunctionCall parts whose ids appear in
// ids, preserving part order. Used to collect long-running calls.
func (e *Event) FunctionCallsByID(ids []string) []*genai.FunctionCall {
	if e.Content == nil || len(ids) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var calls []*genai.FunctionCall
	for _, p := range e.Content.Parts {
		if p != nil && p.FunctionCall != nil && wanted[p.FunctionCall.ID] {
			calls = append(calls, p.FunctionCall)
		}
	}
	return calls
}
