package eval

import (
	"fmt"

	"google.golang.org/genai"

	"github.com/kagent-dev/kagent/go-chat/pkg/stream"
	"github.com/kagent-dev/kagent/go-chat/pkg/transcript"
)

// Project walks the case's invocations in order and emits them into builder
// using the same transcript schema as live chat. Per invocation: the user
// content parts, then each recorded tool use as a synthetic function-call
// message followed by a synthetic function-response message, then the
// final-response parts.
//
// The synthetic messages are reconstructions, not backend events, so they
// carry no event id. The eval indices written onto each message are the only
// path from a projected message back into the source case.
func Project(c *Case, builder *transcript.Builder) {
	for invocationIndex, invocation := range c.Conversation {
		if invocation.UserContent != nil {
			for _, p := range invocation.UserContent.Parts {
				msg := stream.MessageFromPart(nil, p, transcript.RoleUser)
				if msg == nil {
					continue
				}
				msg.Eval = &transcript.EvalRef{
					InvocationIndex:        invocationIndex,
					ToolUseIndex:           -1,
					FinalResponsePartIndex: -1,
				}
				builder.InsertBeforeLoading(msg)
			}
		}

		if invocation.IntermediateData != nil {
			for toolUseIndex, toolUse := range invocation.IntermediateData.ToolUses {
				call := stream.MessageFromPart(nil, &genai.Part{
					FunctionCall: &genai.FunctionCall{Name: toolUse.Name, Args: toolUse.Args},
				}, transcript.RoleBot)
				call.Eval = &transcript.EvalRef{
					InvocationIndex:        invocationIndex,
					ToolUseIndex:           toolUseIndex,
					FinalResponsePartIndex: -1,
				}
				builder.InsertBeforeLoading(call)

				response := stream.MessageFromPart(nil, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{Name: toolUse.Name},
				}, transcript.RoleBot)
				builder.InsertBeforeLoading(response)
			}
		}

		if invocation.FinalResponse != nil {
			for partIndex, p := range invocation.FinalResponse.Parts {
				msg := stream.MessageFromPart(nil, p, transcript.RoleBot)
				if msg == nil {
					continue
				}
				msg.Eval = &transcript.EvalRef{
					InvocationIndex:        invocationIndex,
					ToolUseIndex:           -1,
					FinalResponsePartIndex: partIndex,
				}
				builder.InsertBeforeLoading(msg)
			}
		}
	}
}

// ApplyTextEdit returns a deep copy of c with the final-response part the
// message was projected from replaced by newText. The message must carry an
// eval reference with a final-response part index.
func ApplyTextEdit(c *Case, msg *transcript.Message, newText string) (*Case, error) {
	ref, err := finalResponseRef(c, msg)
	if err != nil {
		return nil, err
	}
	updated, err := c.Clone()
	if err != nil {
		return nil, err
	}
	if newText == "" {
		newText = " "
	}
	updated.Conversation[ref.InvocationIndex].FinalResponse.Parts[ref.FinalResponsePartIndex] = &genai.Part{Text: newText}
	return updated, nil
}

// DeletePart returns a deep copy of c with the final-response part the
// message was projected from removed.
func DeletePart(c *Case, msg *transcript.Message) (*Case, error) {
	ref, err := finalResponseRef(c, msg)
	if err != nil {
		return nil, err
	}
	updated, err := c.Clone()
	if err != nil {
		return nil, err
	}
	parts := updated.Conversation[ref.InvocationIndex].FinalResponse.Parts
	updated.Conversation[ref.InvocationIndex].FinalResponse.Parts = append(parts[:ref.FinalResponsePartIndex], parts[ref.FinalResponsePartIndex+1:]...)
	return updated, nil
}

func finalResponseRef(c *Case, msg *transcript.Message) (*transcript.EvalRef, error) {
	if msg == nil || msg.Eval == nil {
		return nil, fmt.Errorf("message does not originate from an eval case")
	}
	ref := msg.Eval
	if ref.InvocationIndex < 0 || ref.InvocationIndex >= len(c.Conversation) {
		return nil, fmt.Errorf("invocation index %d out of range", ref.InvocationIndex)
	}
	invocation := c.Conversation[ref.InvocationIndex]
	if invocation.FinalResponse == nil || ref.FinalResponsePartIndex < 0 ||
		ref.FinalResponsePartIndex >= len(invocation.FinalResponse.Parts) {
		return nil, fmt.Errorf("final response part index %d out of range", ref.FinalResponsePartIndex)
	}
	return ref, nil
}
