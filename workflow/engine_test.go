package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HuyNguyen260398/bob/messages"
	"github.com/HuyNguyen260398/bob/pkg/uuidx"
	"github.com/HuyNguyen260398/bob/provider"
	"github.com/HuyNguyen260398/bob/tool"
)

// scriptedProvider returns canned completions in order, then repeats the
// last one.
type scriptedProvider struct {
	calls   int
	replies []provider.Completion
	errs    []error
}

func (s *scriptedProvider) Completion(context.Context, provider.CompletionParams) (provider.Completion, error) {
	idx := min(s.calls, len(s.replies)-1)
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return provider.Completion{}, s.errs[idx]
	}
	return s.replies[idx], nil
}

func calcRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	reg, err := tool.NewRegistry(tool.Must("calculate",
		func(_ context.Context, args tool.Args) (string, error) {
			if args.String("expression") == "25 * 4 + 10" {
				return "110", nil
			}
			return "", errors.New("unexpected expression")
		},
		tool.Param("expression", "string", "expression to evaluate"),
		tool.Required("expression"),
	))
	require.NoError(t, err)
	return reg
}

func newTestEngine(t *testing.T, p provider.Provider) *Engine {
	t.Helper()
	engine, err := NewEngine(EngineParams{
		Provider:      p,
		Registry:      calcRegistry(t),
		Instructions:  "You are Bob.",
		Model:         "gpt-4o-mini",
		MaxIterations: 10,
	})
	require.NoError(t, err)
	return engine
}

func TestEngineToolRoundTrip(t *testing.T) {
	p := &scriptedProvider{
		replies: []provider.Completion{
			{
				ToolCalls: []messages.ToolCallData{{
					ID: "call_1", Name: "calculate", Arguments: `{"expression":"25 * 4 + 10"}`,
				}},
				Usage: provider.Usage{TotalTokens: 20},
			},
			{
				Content: "The answer is 110.",
				Usage:   provider.Usage{TotalTokens: 8},
			},
		},
	}

	engine := newTestEngine(t, p)
	state := NewState()
	state.SetUserInput("what is 25 * 4 + 10?")

	var visited []string
	runID := uuidx.New()
	err := engine.Run(context.Background(), runID, state, func(node string, _ *State) {
		visited = append(visited, node)
	})
	require.NoError(t, err)

	assert.Equal(t, "The answer is 110.", state.AgentResponse())
	assert.True(t, state.ShouldEnd())
	assert.False(t, state.Truncated())
	assert.Empty(t, state.UserInput())
	assert.Equal(t, 2, state.IterationCount())
	assert.EqualValues(t, 28, state.Usage().TotalTokens)

	assert.Equal(t, []string{
		NodeProcessInput, NodeGenerateResponse, NodeTools,
		NodeGenerateResponse, NodeUpdateState,
	}, visited)

	history := state.Messages()
	require.Len(t, history, 4)
	assert.Equal(t, "user", history[0].Payload.Role())

	call, ok := history[1].Payload.(messages.ToolCallMessage)
	require.True(t, ok)
	resp, ok := history[2].Payload.(messages.ToolResponse)
	require.True(t, ok)
	assert.Equal(t, call.ToolCalls[0].ID, resp.ToolCallID)
	assert.Equal(t, "110", resp.Content)
	assert.False(t, resp.IsError)

	assert.Equal(t, "assistant", history[3].Payload.Role())
	for _, m := range history {
		assert.Equal(t, runID, m.RunID)
	}
}

func TestEngineToolFailureIsAbsorbed(t *testing.T) {
	p := &scriptedProvider{
		replies: []provider.Completion{
			{ToolCalls: []messages.ToolCallData{{
				ID: "call_1", Name: "calculate", Arguments: `{"expression":"nope"}`,
			}}},
			{Content: "That expression did not compute."},
		},
	}

	engine := newTestEngine(t, p)
	state := NewState()
	state.SetUserInput("do something odd")

	err := engine.Run(context.Background(), uuidx.New(), state, nil)
	require.NoError(t, err)

	history := state.Messages()
	require.Len(t, history, 4)
	resp, ok := history[2].Payload.(messages.ToolResponse)
	require.True(t, ok)
	assert.True(t, resp.IsError)
	assert.Equal(t, "That expression did not compute.", state.AgentResponse())
}

func TestEngineIterationCap(t *testing.T) {
	// The model keeps asking for tools forever.
	p := &scriptedProvider{
		replies: []provider.Completion{
			{ToolCalls: []messages.ToolCallData{{
				ID: "call_x", Name: "calculate", Arguments: `{"expression":"25 * 4 + 10"}`,
			}}},
		},
	}

	engine, err := NewEngine(EngineParams{
		Provider:      p,
		Registry:      calcRegistry(t),
		Model:         "gpt-4o-mini",
		MaxIterations: 2,
	})
	require.NoError(t, err)

	state := NewState()
	state.SetUserInput("loop forever")

	err = engine.Run(context.Background(), uuidx.New(), state, nil)
	require.NoError(t, err)

	assert.True(t, state.Truncated())
	assert.True(t, state.ShouldEnd())
	assert.Equal(t, 2, state.IterationCount())

	// the history never ends with an unanswered tool call
	history := state.Messages()
	last := history[len(history)-1]
	_, isCall := last.Payload.(messages.ToolCallMessage)
	assert.False(t, isCall)
	assertPairing(t, history)
}

func TestEngineProviderErrorPropagates(t *testing.T) {
	boom := provider.Permanent(401, errors.New("bad key"))
	p := &scriptedProvider{
		replies: []provider.Completion{{}},
		errs:    []error{boom},
	}

	engine := newTestEngine(t, p)
	state := NewState()
	state.SetUserInput("hello")

	err := engine.Run(context.Background(), uuidx.New(), state, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), NodeGenerateResponse)
}

func TestEngineRequiresInput(t *testing.T) {
	engine := newTestEngine(t, &scriptedProvider{replies: []provider.Completion{{}}})

	err := engine.Run(context.Background(), uuidx.New(), NewState(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no user input")
}

func TestGraphStepBackstop(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddNode("spin", func(context.Context, *State) (Delta, error) {
		return Delta{}, nil
	}))
	g.AddEdge("spin", "spin")
	g.SetEntry("spin")

	err := g.Run(context.Background(), NewState(), 5, nil)
	assert.ErrorIs(t, err, ErrIterationLimit)
}

// assertPairing verifies every tool call id is answered by a later tool
// response and no response is orphaned.
func assertPairing(t *testing.T, history History) {
	t.Helper()

	pending := map[string]bool{}
	for _, m := range history {
		switch payload := m.Payload.(type) {
		case messages.ToolCallMessage:
			for _, tc := range payload.ToolCalls {
				pending[tc.ID] = true
			}
		case messages.ToolResponse:
			assert.True(t, pending[payload.ToolCallID], "orphaned tool response %s", payload.ToolCallID)
			delete(pending, payload.ToolCallID)
		}
	}
	assert.Empty(t, pending, "unanswered tool calls")
}
