// Package openai 基于openai-go的OpenAI兼容补全客户端（Groq、OpenAI等）
package openai

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pkg/errors"

	"ai_chat_relay/internal/models"
)

// Config 客户端配置
type Config struct {
	APIKey      string  // API密钥
	BaseURL     string  // 服务地址，例如 https://api.groq.com/openai/v1
	Model       string  // 默认模型
	MaxTokens   int     // 最大生成token数，0表示不限制
	Temperature float64 // 采样温度，0表示使用服务端默认值
}

// Client OpenAI兼容客户端
type Client struct {
	client openai.Client
	config Config
}

// NewClient 创建客户端，SDK自带的重试被关闭
func NewClient(config Config) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		baseURL := config.BaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		client: openai.NewClient(opts...),
		config: config,
	}
}

// Name 服务名称
func (c *Client) Name() string {
	return "openai"
}

// Complete 发送一次对话补全请求
func (c *Client) Complete(ctx context.Context, req *models.CompletionRequest) (*models.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case models.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case models.RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			return nil, errors.Errorf("unsupported role %q", m.Role)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if c.config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.config.MaxTokens))
	}
	if c.config.Temperature > 0 {
		params.Temperature = openai.Float(c.config.Temperature)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "chat completion request failed")
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("no response choices returned")
	}

	content := completion.Choices[0].Message.Content
	if content == "" {
		return nil, errors.New("response choice has no content")
	}

	return &models.CompletionResponse{
		Content: content,
		Model:   completion.Model,
		Usage: models.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
		},
	}, nil
}
