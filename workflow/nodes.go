package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"

	"github.com/HuyNguyen260398/bob/messages"
	"github.com/HuyNguyen260398/bob/provider"
	"github.com/HuyNguyen260398/bob/tool"
)

// Node names, also used in progress events.
const (
	NodeProcessInput     = "process_input"
	NodeGenerateResponse = "generate_response"
	NodeTools            = "tools"
	NodeUpdateState      = "update_state"
)

// EngineParams configures a workflow engine.
type EngineParams struct {
	Provider     provider.Provider
	Registry     *tool.Registry
	Instructions string
	Model        string
	MaxTokens    int64
	Temperature  float64

	// MaxIterations bounds the number of reasoning iterations per run.
	// Each consumed user input counts one, each tool round-trip one more.
	MaxIterations int

	// HistoryLimit bounds the retained conversation history, zero keeps
	// everything.
	HistoryLimit int
}

// Engine wires the conversation graph:
//
//	process_input -> generate_response -> {tools | update_state}
//	tools -> generate_response
//	update_state -> {process_input | END}
type Engine struct {
	params EngineParams
	graph  *Graph
}

// NewEngine builds the engine. The provider and registry are required.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Provider == nil {
		return nil, errors.New("workflow: provider is required")
	}
	if params.Registry == nil {
		return nil, errors.New("workflow: tool registry is required")
	}
	if params.MaxIterations <= 0 {
		params.MaxIterations = 10
	}

	e := &Engine{params: params}

	g := NewGraph()
	if err := g.AddNode(NodeProcessInput, e.processInput); err != nil {
		return nil, err
	}
	if err := g.AddNode(NodeGenerateResponse, e.generateResponse); err != nil {
		return nil, err
	}
	if err := g.AddNode(NodeTools, e.runTools); err != nil {
		return nil, err
	}
	if err := g.AddNode(NodeUpdateState, e.updateState); err != nil {
		return nil, err
	}

	g.SetEntry(NodeProcessInput)
	g.AddEdge(NodeProcessInput, NodeGenerateResponse)
	g.AddBranch(NodeGenerateResponse, routeAfterGeneration)
	g.AddEdge(NodeTools, NodeGenerateResponse)
	g.AddBranch(NodeUpdateState, routeAfterUpdate)

	e.graph = g
	return e, nil
}

// Run executes one workflow invocation against the state. The run id
// tags every message produced. The observer may be nil.
func (e *Engine) Run(ctx context.Context, runID uuid.UUID, state *State, observe Observer) error {
	ctx = withRunID(ctx, runID)
	state.beginRun()

	// Backstop for a model that never stops calling tools despite the
	// cap logic. Each iteration costs at most three node executions.
	maxSteps := 3*e.params.MaxIterations + 3
	return e.graph.Run(ctx, state, maxSteps, observe)
}

func (e *Engine) processInput(ctx context.Context, state *State) (Delta, error) {
	input := state.UserInput()
	if input == "" {
		return Delta{}, errors.New("no user input staged")
	}

	state.TruncateHistory(e.params.HistoryLimit)

	msg := messages.New().
		WithRunID(runIDFrom(ctx)).
		WithTurnID(state.ID()).
		UserPrompt(input)

	var d Delta
	d.AppendMessage(messages.Erase(msg))
	d.UserInput = ptr("")
	d.IterationCount = ptr(state.IterationCount() + 1)
	d.ShouldEnd = ptr(false)
	d.Truncated = ptr(false)
	return d, nil
}

func (e *Engine) generateResponse(ctx context.Context, state *State) (Delta, error) {
	completion, err := e.params.Provider.Completion(ctx, provider.CompletionParams{
		RunID:        runIDFrom(ctx),
		Instructions: e.params.Instructions,
		Messages:     state.MessagesIter(),
		Tools:        e.params.Registry.Definitions(),
		Model:        e.params.Model,
		MaxTokens:    e.params.MaxTokens,
		Temperature:  e.params.Temperature,
	})
	if err != nil {
		return Delta{}, err
	}

	var d Delta
	d.Usage = &completion.Usage

	b := messages.New().
		WithRunID(runIDFrom(ctx)).
		WithTurnID(state.ID())

	if completion.HasToolCalls() {
		if state.RunIterations() >= e.params.MaxIterations {
			// Out of budget for another tool round-trip. The tool-call
			// message is withheld so the history never holds an
			// unanswered invocation.
			d.Truncated = ptr(true)
			if completion.Content != "" {
				d.AppendMessage(messages.Erase(b.AssistantMessage(completion.Content)))
			}
			return d, nil
		}
		d.AppendMessage(messages.Erase(b.ToolCall(completion.Content, completion.ToolCalls...)))
		return d, nil
	}

	content := completion.Content
	if content == "" && completion.Refusal != "" {
		content = completion.Refusal
	}
	d.AppendMessage(messages.Erase(b.AssistantMessage(content)))
	return d, nil
}

func (e *Engine) runTools(ctx context.Context, state *State) (Delta, error) {
	history := state.Messages()
	if len(history) == 0 {
		return Delta{}, errors.New("tools node reached with empty history")
	}

	last := history[len(history)-1]
	call, ok := last.Payload.(messages.ToolCallMessage)
	if !ok {
		return Delta{}, fmt.Errorf("tools node reached without a pending tool call, got %T", last.Payload)
	}

	var d Delta
	for _, tc := range call.ToolCalls {
		resp := e.params.Registry.Invoke(ctx, tc)
		msg := messages.Message[messages.ToolResponse]{
			RunID:     runIDFrom(ctx),
			TurnID:    state.ID(),
			Payload:   resp,
			Timestamp: strfmt.DateTime(time.Now()),
		}
		d.AppendMessage(messages.Erase(msg))
	}

	d.IterationCount = ptr(state.IterationCount() + 1)
	return d, nil
}

func (e *Engine) updateState(_ context.Context, state *State) (Delta, error) {
	var d Delta
	d.AgentResponse = ptr(latestAssistantContent(state))
	d.ShouldEnd = ptr(state.UserInput() == "")
	return d, nil
}

func latestAssistantContent(state *State) string {
	history := state.Messages()
	for i := len(history) - 1; i >= 0; i-- {
		switch payload := history[i].Payload.(type) {
		case messages.AssistantMessage:
			return payload.Content
		case messages.ToolCallMessage:
			if payload.Content != "" {
				return payload.Content
			}
		}
	}
	return ""
}

func routeAfterGeneration(state *State) string {
	history := state.Messages()
	if len(history) > 0 {
		if _, ok := history[len(history)-1].Payload.(messages.ToolCallMessage); ok {
			return NodeTools
		}
	}
	return NodeUpdateState
}

func routeAfterUpdate(state *State) string {
	if state.ShouldEnd() {
		return End
	}
	return NodeProcessInput
}

func ptr[T any](v T) *T { return &v }

type runIDKey struct{}

func withRunID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func runIDFrom(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(runIDKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
