// Package store 提供按会话隔离的对话记录存储
package store

import (
	"context"
	"time"

	"ai_chat_relay/internal/models"
)

// Store 会话存储接口
//
// 同一会话的写入由 Lock 串行化，不同会话之间互不阻塞。
type Store interface {
	// GetOrCreate 返回会话信息，不存在时创建空会话
	GetOrCreate(ctx context.Context, sessionID string) (*models.SessionInfo, error)

	// Append 在会话末尾追加一条消息，会话不存在时自动创建。每次调用恰好追加一次
	Append(ctx context.Context, sessionID string, turn models.Turn) error

	// Snapshot 返回会话当前消息的副本，会话不存在时返回空切片且不创建会话
	Snapshot(ctx context.Context, sessionID string) ([]models.Turn, error)

	// Lock 获取会话独占锁，持有期间会话不会被淘汰
	Lock(ctx context.Context, sessionID string) (func(), error)

	// Delete 删除会话
	Delete(ctx context.Context, sessionID string) error

	// Len 当前会话数
	Len(ctx context.Context) (int, error)

	// EvictExpired 淘汰空闲超过TTL的会话，返回淘汰数量
	EvictExpired(ctx context.Context, now time.Time) (int, error)
}

// EvictionReason 淘汰原因
type EvictionReason string

const (
	EvictedCapacity EvictionReason = "capacity"
	EvictedExpired  EvictionReason = "expired"
)

// EvictFunc 会话被淘汰时的回调
type EvictFunc func(sessionID string, reason EvictionReason)
