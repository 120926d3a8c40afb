// Package events defines the progress notifications a workflow run
// publishes while it executes, used by streaming consumers and the SSE
// endpoint.
package events

import (
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/HuyNguyen260398/bob/messages"
	"github.com/HuyNguyen260398/bob/provider"
)

// Event is the closed set of notifications a run can publish. A run
// emits zero or more Updates followed by exactly one Response or Error.
type Event interface {
	event()
	RunIdentifier() uuid.UUID
}

// Update reports that one workflow node finished, carrying the messages
// that node appended.
type Update struct {
	RunID     uuid.UUID                                 `json:"run_id"`
	ThreadID  string                                    `json:"thread_id"`
	Node      string                                    `json:"node"`
	Iteration int                                       `json:"iteration"`
	Messages  []messages.Message[messages.ModelMessage] `json:"messages,omitempty"`
	Timestamp strfmt.DateTime                           `json:"timestamp,omitempty"`
	Meta      gjson.Result                              `json:"meta,omitempty"`
}

func (Update) event() {}

func (u Update) RunIdentifier() uuid.UUID { return u.RunID }

// Response is the terminal event of a successful run.
type Response struct {
	RunID     uuid.UUID       `json:"run_id"`
	ThreadID  string          `json:"thread_id"`
	Content   string          `json:"content"`
	Truncated bool            `json:"truncated,omitempty"`
	Usage     provider.Usage  `json:"usage"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Meta      gjson.Result    `json:"meta,omitempty"`
}

func (Response) event() {}

func (r Response) RunIdentifier() uuid.UUID { return r.RunID }

// Error is the terminal event of a failed run. It implements error so
// consumers can surface it directly.
type Error struct {
	RunID     uuid.UUID       `json:"run_id"`
	ThreadID  string          `json:"thread_id"`
	Err       error           `json:"error"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Meta      gjson.Result    `json:"meta,omitempty"`
}

func (Error) event() {}

func (e Error) RunIdentifier() uuid.UUID { return e.RunID }

func (e Error) Error() string {
	return fmt.Sprintf("run_id: %s, thread_id: %s, error: %v", e.RunID, e.ThreadID, e.Err)
}

func (e Error) Unwrap() error { return e.Err }
