// Package workflow runs the conversation graph: a fixed set of named
// nodes wired with conditional edges, operating on an append-only
// conversation state.
package workflow

import (
	"iter"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/HuyNguyen260398/bob/messages"
	"github.com/HuyNguyen260398/bob/pkg/uuidx"
	"github.com/HuyNguyen260398/bob/provider"
)

// History is an ordered collection of type-erased conversation messages.
type History []messages.Message[messages.ModelMessage]

// Len returns the number of messages in the collection.
func (h History) Len() int { return len(h) }

// State is the conversation state a workflow run operates on. The
// message history only ever grows during a run; nodes express changes as
// a Delta and Apply folds them in.
type State struct {
	id             uuid.UUID
	messages       History
	initLen        int
	userInput      string
	agentResponse  string
	iterationCount int
	runStart       int
	shouldEnd      bool
	truncated      bool
	context        map[string]string
	usage          provider.Usage
}

// NewState creates an empty conversation state.
func NewState() *State {
	return &State{
		id:       uuidx.New(),
		messages: make(History, 0),
	}
}

// ID returns the state's lineage identifier. Fork assigns a fresh one.
func (s *State) ID() uuid.UUID { return s.id }

// Len returns the total number of messages in the history.
func (s *State) Len() int { return len(s.messages) }

// TurnLen returns the number of messages added since the state was
// forked.
func (s *State) TurnLen() int { return len(s.messages) - s.initLen }

// Messages returns a copy of the history. Modifying the returned slice
// does not affect the state.
func (s *State) Messages() History { return slices.Clone(s.messages) }

// MessagesIter iterates the history in order without copying it.
func (s *State) MessagesIter() iter.Seq[messages.Message[messages.ModelMessage]] {
	return slices.Values(s.messages)
}

// UserInput returns the pending input for the current run, empty once
// process_input has consumed it.
func (s *State) UserInput() string { return s.userInput }

// SetUserInput stages input for the next run.
func (s *State) SetUserInput(input string) { s.userInput = input }

// AgentResponse returns the latest final assistant text.
func (s *State) AgentResponse() string { return s.agentResponse }

// IterationCount returns the total iterations consumed over the
// thread's lifetime: one per consumed user input plus one per tool
// round-trip.
func (s *State) IterationCount() int { return s.iterationCount }

// beginRun marks the current iteration count as the start of a run, so
// the iteration cap applies per run rather than per thread.
func (s *State) beginRun() { s.runStart = s.iterationCount }

// RunIterations returns the iterations consumed since the run started.
func (s *State) RunIterations() int { return s.iterationCount - s.runStart }

// ShouldEnd reports whether the run has reached a terminal response.
func (s *State) ShouldEnd() bool { return s.shouldEnd }

// Truncated reports whether the run was cut short by the iteration cap.
func (s *State) Truncated() bool { return s.truncated }

// Usage returns the accumulated token usage for this conversation.
func (s *State) Usage() provider.Usage { return s.usage }

// Context returns the free-form context value stored under key.
func (s *State) Context(key string) (string, bool) {
	v, ok := s.context[key]
	return v, ok
}

// SetContext stores a free-form context value.
func (s *State) SetContext(key, value string) {
	if s.context == nil {
		s.context = make(map[string]string)
	}
	s.context[key] = value
}

// Delta is the change set a node produces. Append grows the history;
// the optional setters replace scalar fields. A zero Delta is a no-op.
type Delta struct {
	Append []messages.Message[messages.ModelMessage]

	UserInput      *string
	AgentResponse  *string
	IterationCount *int
	ShouldEnd      *bool
	Truncated      *bool
	Usage          *provider.Usage
}

// AppendMessage adds a typed message to the delta's append list.
func (d *Delta) AppendMessage(m messages.Message[messages.ModelMessage]) {
	d.Append = append(d.Append, m)
}

// Apply folds a delta into the state. Messages are only ever appended,
// never removed or reordered; scalar fields are replaced when the delta
// carries a value for them.
func (s *State) Apply(d Delta) {
	if len(d.Append) > 0 {
		s.messages = append(s.messages, slices.Clip(d.Append)...)
	}
	if d.UserInput != nil {
		s.userInput = *d.UserInput
	}
	if d.AgentResponse != nil {
		s.agentResponse = *d.AgentResponse
	}
	if d.IterationCount != nil {
		s.iterationCount = *d.IterationCount
	}
	if d.ShouldEnd != nil {
		s.shouldEnd = *d.ShouldEnd
	}
	if d.Truncated != nil {
		s.truncated = *d.Truncated
	}
	if d.Usage != nil {
		s.usage.Add(*d.Usage)
	}
}

// Clone returns an independent deep copy of the state. Unlike Fork it
// keeps the id and run bookkeeping, so it serves as a read snapshot.
func (s *State) Clone() *State {
	clone := *s
	clone.messages = slices.Clone(s.messages)
	clone.context = maps.Clone(s.context)
	return &clone
}

// Fork creates an independent copy of the state with a fresh id. New
// messages on the fork can be folded back with Join.
func (s *State) Fork() *State {
	clone := *s
	clone.id = uuidx.New()
	clone.messages = slices.Clone(s.messages)
	clone.initLen = len(s.messages)
	clone.context = make(map[string]string, len(s.context))
	for k, v := range s.context {
		clone.context[k] = v
	}
	return &clone
}

// Join appends the messages the fork added after the fork point, along
// with its scalar state and any usage it accumulated beyond this state's.
func (s *State) Join(fork *State) {
	s.messages = append(s.messages, fork.messages[fork.initLen:]...)
	s.userInput = fork.userInput
	s.agentResponse = fork.agentResponse
	s.iterationCount = fork.iterationCount
	s.shouldEnd = fork.shouldEnd
	s.truncated = fork.truncated

	delta := fork.usage
	delta.PromptTokens -= s.usage.PromptTokens
	delta.CompletionTokens -= s.usage.CompletionTokens
	delta.TotalTokens -= s.usage.TotalTokens
	s.usage.Add(delta)
}

// Checkpoint is an immutable snapshot of a state.
type Checkpoint struct {
	id        uuid.UUID
	messages  History
	response  string
	iteration int
	usage     provider.Usage
}

// Checkpoint snapshots the state. Later changes to the state do not
// affect the snapshot.
func (s *State) Checkpoint() Checkpoint {
	return Checkpoint{
		id:        s.id,
		messages:  slices.Clone(s.messages),
		response:  s.agentResponse,
		iteration: s.iterationCount,
		usage:     s.usage,
	}
}

// ID returns the id of the state the checkpoint was taken from.
func (c Checkpoint) ID() uuid.UUID { return c.id }

// Messages returns a copy of the snapshotted history.
func (c Checkpoint) Messages() History { return slices.Clone(c.messages) }

// Len returns the snapshotted history length.
func (c Checkpoint) Len() int { return len(c.messages) }

// AgentResponse returns the snapshotted final response.
func (c Checkpoint) AgentResponse() string { return c.response }

// Iteration returns the snapshotted iteration count.
func (c Checkpoint) Iteration() int { return c.iteration }

// Usage returns the snapshotted token usage.
func (c Checkpoint) Usage() provider.Usage { return c.usage }

// TruncateHistory drops the oldest messages until at most limit remain.
// An assistant tool-call message is never separated from the tool
// responses that answer it: the cut point moves forward past any tool
// response so that dropped round-trips are dropped whole. A limit of
// zero or less disables truncation.
func (s *State) TruncateHistory(limit int) {
	if limit <= 0 || len(s.messages) <= limit {
		return
	}

	cut := len(s.messages) - limit
	for cut < len(s.messages) {
		if _, ok := s.messages[cut].Payload.(messages.ToolResponse); !ok {
			break
		}
		cut++
	}
	if cut >= len(s.messages) {
		return
	}

	kept := make(History, len(s.messages)-cut)
	copy(kept, s.messages[cut:])
	s.messages = kept
	if s.initLen > 0 {
		s.initLen = max(0, s.initLen-cut)
	}
}
