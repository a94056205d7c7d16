package part

import (
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Kind classifies the populated variant of a genai.Part. Exactly one variant
// is expected per part; classification order matches the server's precedence.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindInlineData
	KindFunctionCall
	KindFunctionResponse
	KindExecutableCode
	KindCodeExecutionResult
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInlineData:
		return "inlineData"
	case KindFunctionCall:
		return "functionCall"
	case KindFunctionResponse:
		return "functionResponse"
	case KindExecutableCode:
		return "executableCode"
	case KindCodeExecutionResult:
		return "codeExecutionResult"
	default:
		return "unknown"
	}
}

// KindOf returns the Kind of the populated variant of p.
func KindOf(p *genai.Part) Kind {
	switch {
	case p == nil:
		return KindUnknown
	case p.Text != "":
		return KindText
	case p.InlineData != nil:
		return KindInlineData
	case p.FunctionCall != nil:
		return KindFunctionCall
	case p.FunctionResponse != nil:
		return KindFunctionResponse
	case p.ExecutableCode != nil:
		return KindExecutableCode
	case p.CodeExecutionResult != nil:
		return KindCodeExecutionResult
	default:
		return KindUnknown
	}
}

// Title derives the event-index title for a part, e.g. "functionCall:search".
// Executable code is sliced to its first 10 characters.
func Title(p *genai.Part) string {
	switch KindOf(p) {
	case KindText:
		return "text:" + p.Text
	case KindFunctionCall:
		return "functionCall:" + p.FunctionCall.Name
	case KindFunctionResponse:
		return "functionResponse:" + p.FunctionResponse.Name
	case KindExecutableCode:
		code := p.ExecutableCode.Code
		if len(code) > 10 {
			code = code[:10]
		}
		return "executableCode:" + code
	case KindCodeExecutionResult:
		return "codeExecutionResult:" + string(p.CodeExecutionResult.Outcome)
	default:
		return ""
	}
}

// FixBase64 normalizes URL-safe base64 to the standard alphabet and pads it
// to a multiple of 4. Artifact payloads arrive URL-safe and unpadded.
func FixBase64(data string) string {
	data = strings.ReplaceAll(data, "-", "+")
	data = strings.ReplaceAll(data, "_", "/")
	if rem := len(data) % 4; rem != 0 {
		data += strings.Repeat("=", 4-rem)
	}
	return data
}

// DataURI formats base64 data as a data URI after normalizing the alphabet.
func DataURI(data, mimeType string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, FixBase64(data))
}

// DefaultArtifactName derives a fallback file name from a MIME type,
// e.g. "image/png" -> "image.png".
func DefaultArtifactName(mimeType string) string {
	if !strings.Contains(mimeType, "/") {
		return ""
	}
	return strings.Replace(mimeType, "/", ".", 1)
}

// MediaType is the coarse rendering category derived from a MIME type.
type MediaType string

const (
	MediaTypeImage    MediaType = "image"
	MediaTypeAudio    MediaType = "audio"
	MediaTypeVideo    MediaType = "video"
	MediaTypeText     MediaType = "text"
	MediaTypeDocument MediaType = "document"
)

// MediaTypeFromMIME maps a MIME type onto its rendering category. Anything
// unrecognized is treated as a document.
func MediaTypeFromMIME(mimeType string) MediaType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return MediaTypeImage
	case strings.HasPrefix(mimeType, "audio/"):
		return MediaTypeAudio
	case strings.HasPrefix(mimeType, "video/"):
		return MediaTypeVideo
	case strings.HasPrefix(mimeType, "text/"), mimeType == "application/json":
		return MediaTypeText
	default:
		return MediaTypeDocument
	}
}
