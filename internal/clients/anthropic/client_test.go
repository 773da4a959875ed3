package anthropic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai_chat_relay/internal/clients/anthropic"
	"ai_chat_relay/internal/models"
)

const messageJSON = `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-3-5-haiku-latest",
  "content": [{"type": "text", "text": "Hi there!"}],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 10, "output_tokens": 2}
}`

type wireRequest struct {
	Model       string   `json:"model"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature *float64 `json:"temperature"`
	System      []struct {
		Text string `json:"text"`
	} `json:"system"`
	Messages []struct {
		Role string `json:"role"`
	} `json:"messages"`
}

func TestClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		var req wireRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-3-5-haiku-latest", req.Model)
		assert.Equal(t, anthropic.DefaultMaxTokens, req.MaxTokens)
		assert.Nil(t, req.Temperature, "未配置温度时不应发送")
		require.Len(t, req.System, 1)
		assert.Equal(t, "You are a helpful AI support assistant.", req.System[0].Text)
		require.Len(t, req.Messages, 3)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "assistant", req.Messages[1].Role)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageJSON))
	}))
	defer server.Close()

	client := anthropic.NewClient(anthropic.Config{APIKey: "secret", BaseURL: server.URL})
	assert.Equal(t, "anthropic", client.Name())

	resp, err := client.Complete(context.Background(), &models.CompletionRequest{
		Model: "claude-3-5-haiku-latest",
		Messages: []models.Turn{
			{Role: models.RoleSystem, Content: "You are a helpful AI support assistant."},
			{Role: models.RoleUser, Content: "Hello"},
			{Role: models.RoleAssistant, Content: "Hi"},
			{Role: models.RoleUser, Content: "What's 2+2?"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", resp.Content)
	assert.Equal(t, 10, resp.Usage.PromptTokens)
	assert.Equal(t, 2, resp.Usage.CompletionTokens)
}

func TestClient_CompleteError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
	}))
	defer server.Close()

	client := anthropic.NewClient(anthropic.Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	_, err := client.Complete(context.Background(), &models.CompletionRequest{
		Messages: []models.Turn{{Role: models.RoleUser, Content: "Hello"}},
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls, "不应重试")
}

func TestClient_CompleteTemperature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req wireRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.Temperature)
		assert.Equal(t, 0.2, *req.Temperature)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageJSON))
	}))
	defer server.Close()

	client := anthropic.NewClient(anthropic.Config{APIKey: "k", BaseURL: server.URL, Model: "m", Temperature: 0.2})
	resp, err := client.Complete(context.Background(), &models.CompletionRequest{
		Messages: []models.Turn{{Role: models.RoleUser, Content: "Hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", resp.Content)
}
