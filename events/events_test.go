package events

import (
	"errors"
	"testing"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/HuyNguyen260398/bob/messages"
	"github.com/HuyNguyen260398/bob/pkg/uuidx"
	"github.com/HuyNguyen260398/bob/provider"
)

func TestUpdateRoundTrip(t *testing.T) {
	runID := uuidx.New()
	msg := messages.New().WithRunID(runID).AssistantMessage("thinking")

	ev := Update{
		RunID:     runID,
		ThreadID:  "thread-1",
		Node:      "generate_response",
		Iteration: 2,
		Messages:  []messages.Message[messages.ModelMessage]{messages.Erase(msg)},
		Timestamp: strfmt.DateTime(time.Now().UTC()),
	}

	data, err := ToJSON(ev)
	require.NoError(t, err)
	assert.Equal(t, "update", gjson.GetBytes(data, "type").String())

	decoded, err := FromJSON(data)
	require.NoError(t, err)

	got, ok := decoded.(Update)
	require.True(t, ok)
	assert.Equal(t, ev.RunID, got.RunID)
	assert.Equal(t, "thread-1", got.ThreadID)
	assert.Equal(t, "generate_response", got.Node)
	assert.Equal(t, 2, got.Iteration)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "assistant", got.Messages[0].Payload.Role())
}

func TestResponseRoundTrip(t *testing.T) {
	ev := Response{
		RunID:     uuidx.New(),
		ThreadID:  "thread-2",
		Content:   "the answer is 110",
		Truncated: true,
		Usage:     provider.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}

	data, err := ToJSON(ev)
	require.NoError(t, err)
	assert.Equal(t, "response", gjson.GetBytes(data, "type").String())

	decoded, err := FromJSON(data)
	require.NoError(t, err)

	got, ok := decoded.(Response)
	require.True(t, ok)
	assert.Equal(t, ev.Content, got.Content)
	assert.True(t, got.Truncated)
	assert.Equal(t, int64(15), got.Usage.TotalTokens)
}

func TestErrorRoundTrip(t *testing.T) {
	ev := Error{
		RunID:    uuidx.New(),
		ThreadID: "thread-3",
		Err:      errors.New("provider unavailable"),
	}

	assert.Contains(t, ev.Error(), "provider unavailable")

	data, err := ToJSON(ev)
	require.NoError(t, err)

	decoded, err := FromJSON(data)
	require.NoError(t, err)

	got, ok := decoded.(Error)
	require.True(t, ok)
	assert.EqualError(t, got.Err, "provider unavailable")
	assert.Equal(t, ev.RunID, got.RunID)
}

func TestFromJSONRejectsUnknownKind(t *testing.T) {
	_, err := FromJSON([]byte(`{"type":"mystery"}`))
	require.Error(t, err)

	_, err = FromJSON([]byte(`not json at all`))
	require.Error(t, err)
}
