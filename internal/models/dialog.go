// Package models 定义对话中转服务共享的数据结构
package models

import (
	"context"
	"time"
)

// Role 消息角色
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn 对话中的一条消息，追加后不可修改
type Turn struct {
	Role      Role      `json:"role"`       // 消息角色：user/assistant/system
	Content   string    `json:"content"`    // 消息内容
	CreatedAt time.Time `json:"created_at"` // 追加时间
}

// NewTurn 创建一条当前时间的消息
func NewTurn(role Role, content string) Turn {
	return Turn{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// SessionInfo 会话概要信息
type SessionInfo struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	TurnCount    int       `json:"turn_count"`
}

// DialogService 对话服务接口
type DialogService interface {
	// HandleTurn 处理一轮用户消息并返回助手回复
	HandleTurn(ctx context.Context, sessionID string, message string) (string, error)

	// GetHistory 获取对话历史
	GetHistory(ctx context.Context, sessionID string) ([]Turn, error)

	// ClearHistory 清除对话历史
	ClearHistory(ctx context.Context, sessionID string) error

	// SessionCount 当前存活的会话数
	SessionCount(ctx context.Context) (int, error)
}
