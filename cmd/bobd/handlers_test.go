package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HuyNguyen260398/bob"
	"github.com/HuyNguyen260398/bob/messages"
	"github.com/HuyNguyen260398/bob/provider"
)

type echoModel struct{}

func (echoModel) Completion(_ context.Context, params provider.CompletionParams) (provider.Completion, error) {
	var lastUser string
	for m := range params.Messages {
		if um, ok := m.Payload.(messages.UserMessage); ok {
			lastUser = um.Content
		}
	}
	return provider.Completion{Content: "echo: " + lastUser}, nil
}

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := bob.Config{
		Name: "Bob", APIKey: "sk-test", Model: "gpt-4o-mini",
		MaxTokens: 4096, Temperature: 0.7, Instructions: "You are Bob.",
		MaxIterations: 10, MaxRetries: 3,
		RetryBase: time.Millisecond, RetryMax: 5 * time.Millisecond,
	}
	agent, err := bob.New(cfg, bob.WithProvider(echoModel{}))
	require.NoError(t, err)

	srv := httptest.NewServer(newHandler(agent))
	t.Cleanup(srv.Close)
	return srv
}

func TestHealth(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestChatEndpoint(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Post(srv.URL+"/chat", "application/json",
		strings.NewReader(`{"message":"hello","thread_id":"t1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body chatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "echo: hello", body.Response)
	assert.Equal(t, "t1", body.ThreadID)
}

func TestChatEndpointValidation(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Post(srv.URL+"/chat", "application/json",
		strings.NewReader(`{"thread_id":"t1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp2, err := http.Post(srv.URL+"/chat", "application/json",
		strings.NewReader(`not json`))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestHistoryAndDelete(t *testing.T) {
	srv := testServer(t)

	_, err := http.Post(srv.URL+"/chat", "application/json",
		strings.NewReader(`{"message":"first","thread_id":"conv"}`))
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/history/conv")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var history struct {
		ThreadID string            `json:"thread_id"`
		Messages []json.RawMessage `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	assert.Equal(t, "conv", history.ThreadID)
	assert.Len(t, history.Messages, 2)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/thread/conv", nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	assert.Equal(t, http.StatusOK, delResp.StatusCode)

	resp2, err := http.Get(srv.URL + "/history/conv")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var after struct {
		Messages []json.RawMessage `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&after))
	assert.Empty(t, after.Messages)
}

func TestAnalysisEndpoint(t *testing.T) {
	srv := testServer(t)

	_, err := http.Post(srv.URL+"/chat", "application/json",
		strings.NewReader(`{"message":"tell me about go","thread_id":"an"}`))
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/analysis/an")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		ThreadID string       `json:"thread_id"`
		Analysis bob.Analysis `json:"analysis"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "an", body.ThreadID)
	assert.Equal(t, 2, body.Analysis.TotalMessages)
	assert.Equal(t, 1, body.Analysis.UserMessages)
	assert.Equal(t, "early", body.Analysis.Stage)
	assert.Equal(t, []string{"tell me about go"}, body.Analysis.RecentTopics)
}

func TestStreamEndpoint(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Post(srv.URL+"/chat/stream", "application/json",
		strings.NewReader(`{"message":"stream this","thread_id":"s1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	buf := make([]byte, 64*1024)
	var payload strings.Builder
	for {
		n, rerr := resp.Body.Read(buf)
		payload.Write(buf[:n])
		if rerr != nil {
			break
		}
	}

	body := payload.String()
	assert.Contains(t, body, `"type":"update"`)
	assert.Contains(t, body, `"type":"response"`)
	assert.Contains(t, body, "echo: stream this")
	assert.Contains(t, body, "data: [DONE]")
}
