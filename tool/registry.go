package tool

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/HuyNguyen260398/bob/messages"
	"github.com/HuyNguyen260398/bob/pkg/slogx"
)

// Registry holds the tools available to a single agent, preserving the
// order they were registered in. It is assembled once at startup and
// read-only afterwards, so no locking is required.
type Registry struct {
	defs *orderedmap.OrderedMap[string, Definition]
}

// NewRegistry creates a registry containing the given tools. Duplicate
// names are an error.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{defs: orderedmap.New[string, Definition]()}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool to the registry.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool: cannot register unnamed definition")
	}
	if _, exists := r.defs.Get(def.Name); exists {
		return fmt.Errorf("tool %q: already registered", def.Name)
	}
	r.defs.Set(def.Name, def)
	return nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Definition, bool) {
	return r.defs.Get(name)
}

// Definitions returns the registered tools in registration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, r.defs.Len())
	for pair := r.defs.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Len reports the number of registered tools.
func (r *Registry) Len() int { return r.defs.Len() }

// Invoke executes one tool call and returns its result as a tool
// response payload. Unknown tools, malformed arguments and tool
// failures all produce an error response rather than a Go error, so the
// model gets a chance to recover.
func (r *Registry) Invoke(ctx context.Context, call messages.ToolCallData) messages.ToolResponse {
	def, ok := r.Get(call.Name)
	if !ok {
		slog.Warn("unknown tool requested", slog.String("tool", call.Name))
		return messages.ToolResponse{
			ToolName:   call.Name,
			ToolCallID: call.ID,
			Content:    fmt.Sprintf("unknown tool %q", call.Name),
			IsError:    true,
		}
	}

	args := ParseArgs(call.Arguments)
	if err := def.Validate(args); err != nil {
		return messages.ToolResponse{
			ToolName:   call.Name,
			ToolCallID: call.ID,
			Content:    err.Error(),
			IsError:    true,
		}
	}

	start := time.Now()
	result, err := def.Func(ctx, args)
	if err != nil {
		slog.Warn("tool execution failed",
			slog.String("tool", call.Name),
			slog.Duration("took", time.Since(start)),
			slogx.Error(err),
		)
		return messages.ToolResponse{
			ToolName:   call.Name,
			ToolCallID: call.ID,
			Content:    fmt.Sprintf("tool %q failed: %v", call.Name, err),
			IsError:    true,
		}
	}

	slog.Debug("tool executed",
		slog.String("tool", call.Name),
		slog.Duration("took", time.Since(start)),
	)
	return messages.ToolResponse{
		ToolName:   call.Name,
		ToolCallID: call.ID,
		Content:    result,
	}
}
