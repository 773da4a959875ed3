// Package clients 按配置创建大模型补全客户端
package clients

import (
	"fmt"

	"ai_chat_relay/internal/clients/anthropic"
	"ai_chat_relay/internal/clients/ollama"
	"ai_chat_relay/internal/clients/openai"
	"ai_chat_relay/internal/config"
	"ai_chat_relay/internal/models"
)

// NewProvider 根据provider.name创建对应客户端
func NewProvider(cfg config.ProviderConfig) (models.CompletionProvider, error) {
	switch cfg.Name {
	case config.ProviderOpenAI:
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewClient(anthropic.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}), nil
	case config.ProviderOllama:
		return ollama.NewClient(ollama.Config{
			Host:        cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}), nil
	default:
		return nil, fmt.Errorf("不支持的模型服务: %s", cfg.Name)
	}
}
