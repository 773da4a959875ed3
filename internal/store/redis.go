package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"ai_chat_relay/internal/models"
)

const (
	DefaultKeyPrefix = "chat:session:"
	fieldCreatedAt   = "created_at"

	// 固定段放在会话ID之前，任意会话ID都不会撞到别的会话的key
	turnsSegment = "turns:"
	metaSegment  = "meta:"
)

// RedisOptions Redis存储配置
type RedisOptions struct {
	KeyPrefix  string        // key前缀
	SessionTTL time.Duration // 每次写入后重置的过期时间，0 表示不过期
}

// RedisStore 基于Redis列表的会话存储
//
// 每个会话对应一个JSON消息列表和一个meta哈希，过期交给Redis处理。
// 会话锁只在本进程内生效。
type RedisStore struct {
	client redis.UniversalClient
	locker *Locker
	opts   RedisOptions
}

// NewRedisStore 创建Redis存储
func NewRedisStore(client redis.UniversalClient, opts RedisOptions) *RedisStore {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	return &RedisStore{
		client: client,
		locker: NewLocker(),
		opts:   opts,
	}
}

func (s *RedisStore) listKey(sessionID string) string {
	return s.opts.KeyPrefix + turnsSegment + sessionID
}

func (s *RedisStore) metaKey(sessionID string) string {
	return s.opts.KeyPrefix + metaSegment + sessionID
}

// touch 创建meta并刷新过期时间
func (s *RedisStore) touch(ctx context.Context, pipe redis.Pipeliner, sessionID string, now time.Time) {
	pipe.HSetNX(ctx, s.metaKey(sessionID), fieldCreatedAt, now.UnixNano())
	if s.opts.SessionTTL > 0 {
		pipe.Expire(ctx, s.metaKey(sessionID), s.opts.SessionTTL)
		pipe.Expire(ctx, s.listKey(sessionID), s.opts.SessionTTL)
	}
}

// GetOrCreate 获取或创建会话
func (s *RedisStore) GetOrCreate(ctx context.Context, sessionID string) (*models.SessionInfo, error) {
	now := time.Now()
	var (
		createdCmd *redis.StringCmd
		lenCmd     *redis.IntCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.touch(ctx, pipe, sessionID, now)
		createdCmd = pipe.HGet(ctx, s.metaKey(sessionID), fieldCreatedAt)
		lenCmd = pipe.LLen(ctx, s.listKey(sessionID))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "redis get or create session")
	}

	createdNanos, err := createdCmd.Int64()
	if err != nil {
		return nil, errors.Wrap(err, "redis read session meta")
	}
	return &models.SessionInfo{
		ID:           sessionID,
		CreatedAt:    time.Unix(0, createdNanos),
		LastActivity: now,
		TurnCount:    int(lenCmd.Val()),
	}, nil
}

// Append 追加消息
func (s *RedisStore) Append(ctx context.Context, sessionID string, turn models.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return errors.Wrap(err, "marshal turn")
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.listKey(sessionID), data)
		s.touch(ctx, pipe, sessionID, time.Now())
		return nil
	})
	return errors.Wrap(err, "redis append turn")
}

// Snapshot 获取消息副本
func (s *RedisStore) Snapshot(ctx context.Context, sessionID string) ([]models.Turn, error) {
	items, err := s.client.LRange(ctx, s.listKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis read transcript")
	}

	turns := make([]models.Turn, 0, len(items))
	for _, item := range items {
		var turn models.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, errors.Wrapf(err, "corrupt turn in session %q", sessionID)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Lock 获取会话独占锁
func (s *RedisStore) Lock(ctx context.Context, sessionID string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.locker.Lock(sessionID), nil
}

// Delete 删除会话
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	err := s.client.Del(ctx, s.listKey(sessionID), s.metaKey(sessionID)).Err()
	return errors.Wrap(err, "redis delete session")
}

// Len 通过扫描meta key统计会话数
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	count := 0
	iter := s.client.Scan(ctx, 0, s.opts.KeyPrefix+metaSegment+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, errors.Wrap(err, "redis scan sessions")
	}
	return count, nil
}

// EvictExpired 过期由Redis负责，这里不做任何事
func (s *RedisStore) EvictExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

// Close 关闭Redis连接
func (s *RedisStore) Close() error {
	return s.client.Close()
}
