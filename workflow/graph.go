package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/HuyNguyen260398/bob/pkg/slogx"
)

// End is the terminal pseudo-node. Routing to it stops the run.
const End = "__end__"

// ErrIterationLimit is returned when a run exceeds its step budget
// before reaching the end node. The state carries whatever progress was
// made; callers decide whether to surface it as a best-effort result.
var ErrIterationLimit = errors.New("workflow: iteration limit reached")

// NodeFunc is one unit of work in the graph. It inspects the state and
// returns a delta; the runner applies it. Returning an error aborts the
// run without applying anything.
type NodeFunc func(ctx context.Context, state *State) (Delta, error)

// RouteFunc picks the next node after a branch node, based on the state
// the node just produced.
type RouteFunc func(state *State) string

// Observer is notified after each node's delta has been applied. Used
// for checkpointing and streaming progress.
type Observer func(node string, state *State)

// Graph is a fixed directed graph of named nodes. Build it once with
// AddNode, AddEdge and AddBranch, then execute it any number of times
// with Run. Graphs are immutable once built and safe for concurrent
// runs.
type Graph struct {
	nodes    map[string]NodeFunc
	edges    map[string]string
	branches map[string]RouteFunc
	entry    string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]NodeFunc),
		edges:    make(map[string]string),
		branches: make(map[string]RouteFunc),
	}
}

// AddNode registers a named node. Re-registering a name is an error.
func (g *Graph) AddNode(name string, fn NodeFunc) error {
	if name == "" || name == End {
		return fmt.Errorf("workflow: invalid node name %q", name)
	}
	if _, exists := g.nodes[name]; exists {
		return fmt.Errorf("workflow: node %q already registered", name)
	}
	g.nodes[name] = fn
	return nil
}

// AddEdge wires an unconditional edge from one node to the next.
func (g *Graph) AddEdge(from, to string) {
	g.edges[from] = to
}

// AddBranch wires a conditional edge: after from runs, route decides
// the successor.
func (g *Graph) AddBranch(from string, route RouteFunc) {
	g.branches[from] = route
}

// SetEntry names the node a run starts at.
func (g *Graph) SetEntry(name string) {
	g.entry = name
}

// Run executes the graph against the given state, mutating it in place.
// maxSteps bounds the total number of node executions; exceeding it
// returns ErrIterationLimit with the state reflecting all completed
// nodes. The observer may be nil.
func (g *Graph) Run(ctx context.Context, state *State, maxSteps int, observe Observer) error {
	current := g.entry
	if current == "" {
		return errors.New("workflow: no entry node set")
	}

	for step := 0; ; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if maxSteps > 0 && step >= maxSteps {
			return ErrIterationLimit
		}

		fn, ok := g.nodes[current]
		if !ok {
			return fmt.Errorf("workflow: unknown node %q", current)
		}

		start := time.Now()
		delta, err := fn(ctx, state)
		if err != nil {
			return fmt.Errorf("workflow: node %q: %w", current, err)
		}
		state.Apply(delta)

		slog.Debug("node completed",
			slogx.Node(current),
			slog.Int("iteration", state.IterationCount()),
			slog.Duration("took", time.Since(start)),
		)
		if observe != nil {
			observe(current, state)
		}

		next, err := g.next(current, state)
		if err != nil {
			return err
		}
		if next == End {
			return nil
		}
		current = next
	}
}

func (g *Graph) next(current string, state *State) (string, error) {
	if route, ok := g.branches[current]; ok {
		return route(state), nil
	}
	if to, ok := g.edges[current]; ok {
		return to, nil
	}
	return "", fmt.Errorf("workflow: node %q has no outgoing edge", current)
}
