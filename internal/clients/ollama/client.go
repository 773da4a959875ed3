package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"ai_chat_relay/internal/models"
)

// Config Ollama客户端配置
type Config struct {
	Host        string  // Ollama服务器地址（完整URL）
	Model       string  // 使用的模型名称
	MaxTokens   int     // 最大生成token数，0表示使用服务端默认值
	Temperature float64 // 采样温度，0表示使用服务端默认值
}

// Client Ollama客户端
type Client struct {
	config Config
	client *http.Client
}

// ChatMessage 对话消息
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest /api/chat 请求参数
type ChatRequest struct {
	Model    string        `json:"model"`             // 模型名称
	Messages []ChatMessage `json:"messages"`          // 消息列表
	Stream   bool          `json:"stream"`            // 是否流式输出
	Options  *Options      `json:"options,omitempty"` // 可选参数
}

// Options 生成选项
type Options struct {
	Temperature float64 `json:"temperature,omitempty"` // 温度参数
	NumPredict  int     `json:"num_predict,omitempty"` // 最大生成token数
}

// ChatResponse /api/chat 响应
type ChatResponse struct {
	Model           string       `json:"model"`             // 模型名称
	CreatedAt       string       `json:"created_at"`        // 创建时间
	Message         *ChatMessage `json:"message"`           // 生成的消息
	Done            bool         `json:"done"`              // 是否完成
	TotalDuration   int64        `json:"total_duration"`    // 总耗时(纳秒)
	PromptEvalCount int          `json:"prompt_eval_count"` // 提示词token数
	EvalCount       int          `json:"eval_count"`        // 生成token数
}

// NewClient 创建新的Ollama客户端
func NewClient(config Config) *Client {
	config.Host = strings.TrimRight(config.Host, "/")
	return &Client{
		config: config,
		client: &http.Client{},
	}
}

// Name 服务名称
func (c *Client) Name() string {
	return "ollama"
}

// Complete 发送一次非流式对话请求
func (c *Client) Complete(ctx context.Context, req *models.CompletionRequest) (*models.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	// 准备请求体
	reqBody := ChatRequest{
		Model:    model,
		Messages: make([]ChatMessage, 0, len(req.Messages)),
		Stream:   false,
	}
	for _, m := range req.Messages {
		reqBody.Messages = append(reqBody.Messages, ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	if c.config.MaxTokens > 0 || c.config.Temperature > 0 {
		reqBody.Options = &Options{
			Temperature: c.config.Temperature,
			NumPredict:  c.config.MaxTokens,
		}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.Wrap(err, "序列化请求失败")
	}

	url := fmt.Sprintf("%s/api/chat", c.config.Host)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, errors.Wrap(err, "创建请求失败")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	// 发送请求
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "发送请求失败")
	}
	defer resp.Body.Close()

	// 检查响应状态码
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.Errorf("服务器返回错误(%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// 解析响应
	var response ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, errors.Wrap(err, "解析响应失败")
	}
	if response.Message == nil || response.Message.Content == "" {
		return nil, errors.New("响应中缺少回复内容")
	}

	return &models.CompletionResponse{
		Content: response.Message.Content,
		Model:   response.Model,
		Usage: models.Usage{
			PromptTokens:     response.PromptEvalCount,
			CompletionTokens: response.EvalCount,
		},
	}, nil
}
