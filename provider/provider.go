// Package provider abstracts the outbound chat-completion API. The
// workflow only ever sees this interface; the concrete OpenAI-backed
// implementation lives in the openai subpackage and test doubles stand in
// for it everywhere else.
package provider

import (
	"context"
	"iter"

	"github.com/google/uuid"

	"github.com/HuyNguyen260398/bob/messages"
	"github.com/HuyNguyen260398/bob/tool"
)

// Provider produces one completion for a conversation history. A
// completion either carries assistant prose or requests tool invocations;
// the caller decides what happens next.
type Provider interface {
	Completion(context.Context, CompletionParams) (Completion, error)
}

// CompletionParams carries everything a provider needs for one request.
type CompletionParams struct {
	// RunID identifies the workflow invocation for tracing.
	RunID uuid.UUID

	// Instructions is the system prompt for this request.
	Instructions string

	// Messages iterates the conversation history in chronological order.
	Messages iter.Seq[messages.Message[messages.ModelMessage]]

	// Tools lists the definitions the model may invoke. Empty means no
	// tool use.
	Tools []tool.Definition

	// Model names the completion model to use.
	Model string

	// MaxTokens bounds the generated completion; zero means provider
	// default.
	MaxTokens int64

	// Temperature is the sampling temperature.
	Temperature float64

	_ struct{} // require keyed usage
}

// Completion is the provider's answer to one request. ToolCalls and
// Content are not mutually exclusive: some models attach commentary to a
// tool request.
type Completion struct {
	Content   string
	Refusal   string
	ToolCalls []messages.ToolCallData
	Usage     Usage

	_ struct{} // require keyed usage
}

// HasToolCalls reports whether the model requested tool execution.
func (c Completion) HasToolCalls() bool {
	return len(c.ToolCalls) > 0
}

// Usage tracks token consumption across completions.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Add accumulates another usage record into this one.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}
