package broker

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HuyNguyen260398/bob/events"
	"github.com/HuyNguyen260398/bob/pkg/uuidx"
)

func setupNATS(t *testing.T) *nats.Conn {
	t.Helper()
	nc, err := nats.Connect(nats.DefaultURL)
	if err != nil {
		t.Skipf("nats server not reachable: %v", err)
	}
	t.Cleanup(nc.Close)
	return nc
}

func TestNATSBrokerReusesTopics(t *testing.T) {
	nc := setupNATS(t)
	b := NATS(nc)
	ctx := context.Background()

	assert.Same(t, b.Topic(ctx, "run-1"), b.Topic(ctx, "run-1"))
	assert.NotSame(t, b.Topic(ctx, "run-1"), b.Topic(ctx, "run-2"))
}

func TestNATSTopicRoundTripsEvents(t *testing.T) {
	nc := setupNATS(t)
	ctx := context.Background()
	topic := NATS(nc).Topic(ctx, uuidx.NewString())

	ch, sub, err := topic.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, nc.Flush())

	runID := uuidx.New()
	require.NoError(t, topic.Publish(ctx, events.Update{
		RunID: runID, ThreadID: "thread", Node: "generate_response", Iteration: 1,
	}))
	require.NoError(t, topic.Publish(ctx, events.Response{RunID: runID, Content: "done"}))

	got := collect(ch, 2*time.Second)
	require.Len(t, got, 2)

	update, ok := got[0].(events.Update)
	require.True(t, ok, "expected update, got %T", got[0])
	assert.Equal(t, runID, update.RunID)
	assert.Equal(t, "generate_response", update.Node)
	assert.Equal(t, 1, update.Iteration)

	response, ok := got[1].(events.Response)
	require.True(t, ok, "expected response, got %T", got[1])
	assert.Equal(t, "done", response.Content)
}

func TestNATSTopicIsolatesRuns(t *testing.T) {
	nc := setupNATS(t)
	ctx := context.Background()
	b := NATS(nc)

	idA, idB := uuidx.NewString(), uuidx.NewString()
	chA, subA, err := b.Topic(ctx, idA).Subscribe(ctx)
	require.NoError(t, err)
	defer subA.Unsubscribe()

	chB, subB, err := b.Topic(ctx, idB).Subscribe(ctx)
	require.NoError(t, err)
	defer subB.Unsubscribe()
	require.NoError(t, nc.Flush())

	require.NoError(t, b.Topic(ctx, idB).Publish(ctx, events.Response{Content: "only b"}))

	assert.Len(t, collect(chB, 2*time.Second), 1)
	assert.Empty(t, collect(chA, 100*time.Millisecond))
}
