package eval

import (
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

// ToolUse is one recorded intermediate tool invocation.
type ToolUse struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// IntermediateData holds the tool uses recorded between the user content and
// the final response of an invocation.
type IntermediateData struct {
	ToolUses []ToolUse `json:"toolUses,omitempty"`
}

// Invocation is one user turn of a stored conversation: the user content,
// the intermediate tool uses, and the final response.
type Invocation struct {
	InvocationID     string            `json:"invocationId,omitempty"`
	UserContent      *genai.Content    `json:"userContent,omitempty"`
	IntermediateData *IntermediateData `json:"intermediateData,omitempty"`
	FinalResponse    *genai.Content    `json:"finalResponse,omitempty"`
}

// Case is a stored, non-live conversation used for regression review and
// editing. It is consumed whole: there is no streaming.
type Case struct {
	EvalID       string         `json:"evalId"`
	Conversation []Invocation   `json:"conversation"`
	SessionInput map[string]any `json:"sessionInput,omitempty"`
}

// Clone deep-copies the case via a JSON round trip, so edits never alias the
// currently displayed one.
func (c *Case) Clone() (*Case, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to clone eval case: %w", err)
	}
	var out Case
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to clone eval case: %w", err)
	}
	return &out, nil
}
