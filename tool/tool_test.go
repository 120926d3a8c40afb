package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HuyNguyen260398/bob/messages"
)

func echoTool() Definition {
	return Must("echo", func(_ context.Context, args Args) (string, error) {
		return args.String("text"), nil
	},
		Description("repeats its input"),
		Param("text", "string", "the text to repeat"),
		Required("text"),
	)
}

func TestNew(t *testing.T) {
	t.Run("requires a name", func(t *testing.T) {
		_, err := New("", func(context.Context, Args) (string, error) { return "", nil })
		require.Error(t, err)
	})

	t.Run("requires a function", func(t *testing.T) {
		_, err := New("broken", nil)
		require.Error(t, err)
	})

	t.Run("builds schema from options", func(t *testing.T) {
		def := echoTool()
		assert.Equal(t, "echo", def.Name)
		assert.Equal(t, "repeats its input", def.Description)
		require.NotNil(t, def.Schema)
		assert.Equal(t, "object", def.Schema.Type)

		prop, ok := def.Schema.Properties.Get("text")
		require.True(t, ok)
		assert.Equal(t, "string", prop.Type)
		assert.Equal(t, []string{"text"}, def.Schema.Required)
	})
}

func TestValidate(t *testing.T) {
	def := echoTool()

	require.NoError(t, def.Validate(ParseArgs(`{"text":"hi"}`)))

	err := def.Validate(ParseArgs(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text")
}

func TestRegistry(t *testing.T) {
	t.Run("rejects duplicates", func(t *testing.T) {
		_, err := NewRegistry(echoTool(), echoTool())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("preserves registration order", func(t *testing.T) {
		first := Must("first", func(context.Context, Args) (string, error) { return "", nil })
		second := Must("second", func(context.Context, Args) (string, error) { return "", nil })

		reg, err := NewRegistry(first, second)
		require.NoError(t, err)

		defs := reg.Definitions()
		require.Len(t, defs, 2)
		assert.Equal(t, "first", defs[0].Name)
		assert.Equal(t, "second", defs[1].Name)
	})
}

func TestRegistryInvoke(t *testing.T) {
	reg, err := NewRegistry(
		echoTool(),
		Must("explode", func(context.Context, Args) (string, error) {
			return "", errors.New("kaboom")
		}),
	)
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("executes a valid call", func(t *testing.T) {
		resp := reg.Invoke(ctx, messages.ToolCallData{
			ID: "call_1", Name: "echo", Arguments: `{"text":"hello"}`,
		})
		assert.False(t, resp.IsError)
		assert.Equal(t, "hello", resp.Content)
		assert.Equal(t, "call_1", resp.ToolCallID)
		assert.Equal(t, "echo", resp.ToolName)
	})

	t.Run("reports unknown tools as errors", func(t *testing.T) {
		resp := reg.Invoke(ctx, messages.ToolCallData{ID: "call_2", Name: "nope", Arguments: `{}`})
		assert.True(t, resp.IsError)
		assert.Contains(t, resp.Content, "unknown tool")
	})

	t.Run("reports missing arguments as errors", func(t *testing.T) {
		resp := reg.Invoke(ctx, messages.ToolCallData{ID: "call_3", Name: "echo", Arguments: `{}`})
		assert.True(t, resp.IsError)
		assert.Contains(t, resp.Content, "missing required argument")
	})

	t.Run("absorbs tool failures", func(t *testing.T) {
		resp := reg.Invoke(ctx, messages.ToolCallData{ID: "call_4", Name: "explode", Arguments: `{}`})
		assert.True(t, resp.IsError)
		assert.Contains(t, resp.Content, "kaboom")
	})
}
