// Package anthropic 基于anthropic-sdk-go的Claude补全客户端
package anthropic

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"

	"ai_chat_relay/internal/models"
)

// DefaultMaxTokens Messages API要求必须设置max_tokens
const DefaultMaxTokens = 1024

// Config 客户端配置
type Config struct {
	APIKey      string  // API密钥
	BaseURL     string  // 服务地址，为空使用SDK默认值
	Model       string  // 默认模型
	MaxTokens   int     // 最大生成token数
	Temperature float64 // 采样温度，0表示使用服务端默认值
}

// Client Anthropic客户端
type Client struct {
	client anthropic.Client
	config Config
}

// NewClient 创建客户端，SDK自带的重试被关闭
func NewClient(config Config) *Client {
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultMaxTokens
	}
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
		client: anthropic.NewClient(opts...),
		config: config,
	}
}

// Name 服务名称
func (c *Client) Name() string {
	return "anthropic"
}

// Complete 发送一次Messages请求，系统指令放在System字段
func (c *Client) Complete(ctx context.Context, req *models.CompletionRequest) (*models.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	var system []anthropic.TextBlockParam
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case models.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case models.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case models.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			return nil, errors.Errorf("unsupported role %q", m.Role)
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: int64(c.config.MaxTokens),
		System:    system,
	}
	if c.config.Temperature > 0 {
		params.Temperature = anthropic.Float(c.config.Temperature)
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "messages request failed")
	}

	var content strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if content.Len() == 0 {
		return nil, errors.New("response has no text content")
	}

	return &models.CompletionResponse{
		Content: content.String(),
		Model:   string(message.Model),
		Usage: models.Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
		},
	}, nil
}
