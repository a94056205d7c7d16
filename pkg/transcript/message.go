package transcript

import (
	"google.golang.org/genai"

	"github.com/kagent-dev/kagent/go-chat/pkg/part"
)

// Role identifies the transcript-facing author of a message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// InlineData is displayable binary content, with the payload already encoded
// as a data URI.
type InlineData struct {
	Name        string
	DisplayName string
	Data        string
	MIMEType    string
	MediaType   part.MediaType
}

// Attachment is a user-provided file echoed into the transcript.
type Attachment struct {
	Name     string
	MIMEType string
	Data     []byte
}

// EvalRef ties a projected message back to its location inside the source
// eval case. Indices that do not apply are -1.
type EvalRef struct {
	InvocationIndex        int
	ToolUseIndex           int
	FinalResponsePartIndex int
}

// Message is the mutable, transcript-facing projection of one or more parts.
// Unlike an event it may change while streaming: the active streaming
// message's Text accumulates until the turn completes.
type Message struct {
	Role    Role
	EventID string

	Text            string
	Thought         bool
	RenderedContent string

	IsLoading bool

	InlineData          *InlineData
	FunctionCall        *genai.FunctionCall
	FunctionResponse    *genai.FunctionResponse
	ExecutableCode      *genai.ExecutableCode
	CodeExecutionResult *genai.CodeExecutionResult

	Attachments []Attachment

	PendingArtifact   bool
	PendingArtifactID string
	ToolName          string

	Eval *EvalRef
}
