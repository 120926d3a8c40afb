// Package messages defines the typed message union that flows through a
// conversation: user prompts, assistant replies, tool-call requests, and
// tool results. Every concrete payload travels inside a generic Message
// envelope that carries run/turn identity and timing metadata.
package messages

import (
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// ModelMessage is the closed union of payloads that can appear in a
// conversation history. Only types in this package implement it.
type ModelMessage interface {
	message()
	// Role returns the wire role of the payload: "user", "assistant", or "tool".
	Role() string
}

// Request marks payloads that are sent to the model (user prompts and
// tool results).
type Request interface {
	request()
}

// Response marks payloads that are produced by the model (assistant
// replies and tool-call requests).
type Response interface {
	response()
}

// UserMessage is a prompt authored by the human side of the conversation.
type UserMessage struct {
	Content string `json:"content"`
}

func (UserMessage) message()     {}
func (UserMessage) request()     {}
func (UserMessage) Role() string { return "user" }

// AssistantMessage is a plain-text reply generated by the model.
type AssistantMessage struct {
	Content string `json:"content"`
	Refusal string `json:"refusal,omitempty"`
}

func (AssistantMessage) message()     {}
func (AssistantMessage) response()    {}
func (AssistantMessage) Role() string { return "assistant" }

// ToolCallData describes a single function invocation requested by the
// model. Arguments is the raw JSON argument object as produced by the
// model; it is validated against the tool's schema before execution.
type ToolCallData struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCallMessage is an assistant turn that requests one or more tool
// invocations instead of (or in addition to) prose. It must be recorded
// in the history before any of its results, and every ToolCallData.ID in
// it must be answered by a ToolResponse referencing the same id.
type ToolCallMessage struct {
	Content   string         `json:"content,omitempty"`
	ToolCalls []ToolCallData `json:"tool_calls"`
}

func (ToolCallMessage) message()     {}
func (ToolCallMessage) response()    {}
func (ToolCallMessage) Role() string { return "assistant" }

// ToolResponse is the result of executing one requested tool invocation.
// IsError marks results that describe a failure; the workflow records
// those instead of aborting so the model can react to them.
type ToolResponse struct {
	ToolName   string `json:"tool_name"`
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

func (ToolResponse) message()     {}
func (ToolResponse) request()     {}
func (ToolResponse) Role() string { return "tool" }

// Message is the envelope around every payload in a conversation. RunID
// identifies the workflow invocation that produced the entry, TurnID the
// state lineage it belongs to. Meta is free-form metadata that the core
// workflow does not interpret.
type Message[T ModelMessage] struct {
	RunID     uuid.UUID       `json:"run_id,omitempty"`
	TurnID    uuid.UUID       `json:"turn_id,omitempty"`
	Payload   T               `json:"payload"`
	Sender    string          `json:"sender,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp"`
	Meta      gjson.Result    `json:"meta,omitempty"`
}

// Erase converts a Message[T] to the type-erased Message[ModelMessage]
// form used by conversation state. All envelope fields are preserved; the
// conversion is safe because T is constrained to ModelMessage.
func Erase[T ModelMessage](m Message[T]) Message[ModelMessage] {
	return Message[ModelMessage]{
		RunID:     m.RunID,
		TurnID:    m.TurnID,
		Payload:   m.Payload,
		Sender:    m.Sender,
		Timestamp: m.Timestamp,
		Meta:      m.Meta,
	}
}
