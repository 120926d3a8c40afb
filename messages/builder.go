package messages

import (
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/HuyNguyen260398/bob/pkg/uuidx"
)

// Builder assembles message envelopes with shared identity fields. The
// zero value is usable; New is provided for fluent call chains:
//
//	msg := messages.New().WithSender("bob").AssistantMessage("hi there")
type Builder struct {
	runID  uuid.UUID
	turnID uuid.UUID
	sender string
	meta   gjson.Result
}

// New returns an empty Builder.
func New() Builder {
	return Builder{}
}

// WithRunID stamps subsequent messages with the given run id.
func (b Builder) WithRunID(id uuid.UUID) Builder {
	b.runID = id
	return b
}

// WithTurnID stamps subsequent messages with the given turn id.
func (b Builder) WithTurnID(id uuid.UUID) Builder {
	b.turnID = id
	return b
}

// WithSender stamps subsequent messages with the given sender name.
func (b Builder) WithSender(sender string) Builder {
	b.sender = sender
	return b
}

// WithMeta attaches free-form metadata to subsequent messages.
func (b Builder) WithMeta(meta gjson.Result) Builder {
	b.meta = meta
	return b
}

func (b Builder) turn() uuid.UUID {
	if b.turnID == uuid.Nil {
		return uuidx.New()
	}
	return b.turnID
}

// UserPrompt wraps raw human input as a user message.
func (b Builder) UserPrompt(content string) Message[UserMessage] {
	return Message[UserMessage]{
		RunID:     b.runID,
		TurnID:    b.turn(),
		Payload:   UserMessage{Content: content},
		Sender:    b.sender,
		Timestamp: strfmt.DateTime(time.Now()),
		Meta:      b.meta,
	}
}

// AssistantMessage wraps generated prose as an assistant message.
func (b Builder) AssistantMessage(content string) Message[AssistantMessage] {
	return Message[AssistantMessage]{
		RunID:     b.runID,
		TurnID:    b.turn(),
		Payload:   AssistantMessage{Content: content},
		Sender:    b.sender,
		Timestamp: strfmt.DateTime(time.Now()),
		Meta:      b.meta,
	}
}

// ToolCall wraps a set of requested invocations as an assistant tool-call
// message.
func (b Builder) ToolCall(content string, calls ...ToolCallData) Message[ToolCallMessage] {
	return Message[ToolCallMessage]{
		RunID:     b.runID,
		TurnID:    b.turn(),
		Payload:   ToolCallMessage{Content: content, ToolCalls: calls},
		Sender:    b.sender,
		Timestamp: strfmt.DateTime(time.Now()),
		Meta:      b.meta,
	}
}

// ToolResponse wraps a successful tool result, answering the invocation
// identified by callID.
func (b Builder) ToolResponse(callID, toolName, content string) Message[ToolResponse] {
	return Message[ToolResponse]{
		RunID:     b.runID,
		TurnID:    b.turn(),
		Payload:   ToolResponse{ToolCallID: callID, ToolName: toolName, Content: content},
		Sender:    b.sender,
		Timestamp: strfmt.DateTime(time.Now()),
		Meta:      b.meta,
	}
}

// ToolError wraps a failed tool execution as an error-bearing tool result.
// The workflow records these instead of aborting, so the model can see
// and react to the failure.
func (b Builder) ToolError(callID, toolName, description string) Message[ToolResponse] {
	return Message[ToolResponse]{
		RunID:     b.runID,
		TurnID:    b.turn(),
		Payload:   ToolResponse{ToolCallID: callID, ToolName: toolName, Content: description, IsError: true},
		Sender:    b.sender,
		Timestamp: strfmt.DateTime(time.Now()),
		Meta:      b.meta,
	}
}
