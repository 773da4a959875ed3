package models

import "context"

// CompletionRequest 发往大模型的补全请求
type CompletionRequest struct {
	Model    string // 模型名称
	Messages []Turn // 按顺序排列的消息，首条为系统指令
}

// Usage token用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// CompletionResponse 大模型返回的单条回复
type CompletionResponse struct {
	Content string
	Model   string
	Usage   Usage
}

// CompletionProvider 外部补全服务接口
type CompletionProvider interface {
	// Complete 同步发送一次补全请求，不做重试
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name 返回服务名称
	Name() string
}
