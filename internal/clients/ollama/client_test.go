package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai_chat_relay/internal/clients/ollama"
	"ai_chat_relay/internal/models"
)

func testRequest() *models.CompletionRequest {
	return &models.CompletionRequest{
		Model: "test-model",
		Messages: []models.Turn{
			{Role: models.RoleSystem, Content: "You are a helpful AI support assistant."},
			{Role: models.RoleUser, Content: "你好"},
		},
	}
}

func TestClient_Complete(t *testing.T) {
	// 创建测试服务器
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		// 解析请求体
		var req ollama.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "你好", req.Messages[1].Content)
		require.NotNil(t, req.Options)
		assert.Equal(t, 100, req.Options.NumPredict)
		assert.Equal(t, 0.3, req.Options.Temperature)

		// 返回模拟响应
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ollama.ChatResponse{
			Model:           "test-model",
			CreatedAt:       time.Now().Format(time.RFC3339),
			Message:         &ollama.ChatMessage{Role: "assistant", Content: "这是一个测试响应"},
			Done:            true,
			PromptEvalCount: 10,
			EvalCount:       20,
		})
	}))
	defer server.Close()

	client := ollama.NewClient(ollama.Config{Host: server.URL + "/", Model: "default", MaxTokens: 100, Temperature: 0.3})
	assert.Equal(t, "ollama", client.Name())

	resp, err := client.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "这是一个测试响应", resp.Content)
	assert.Equal(t, 10, resp.Usage.PromptTokens)
	assert.Equal(t, 20, resp.Usage.CompletionTokens)
}

func TestClient_CompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantMsg string
	}{
		{
			name: "服务器返回500",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("服务器内部错误"))
			},
			wantMsg: "服务器内部错误",
		},
		{
			name: "响应不是JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
			wantMsg: "解析响应失败",
		},
		{
			name: "缺少回复内容",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"model":"m","done":true}`))
			},
			wantMsg: "缺少回复内容",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := ollama.NewClient(ollama.Config{Host: server.URL, Model: "test-model"})
			_, err := client.Complete(context.Background(), testRequest())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	// 测试无效的服务器地址
	invalidClient := ollama.NewClient(ollama.Config{Host: "http://127.0.0.1:1", Model: "test-model"})
	_, err := invalidClient.Complete(context.Background(), testRequest())
	assert.Error(t, err)
}
