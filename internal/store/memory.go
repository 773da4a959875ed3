package store

import (
	"container/list"
	"context"
	"sync"
	"time"

	"ai_chat_relay/internal/models"
)

const (
	DefaultMaxSessions = 10000
	DefaultSessionTTL  = 30 * time.Minute
)

// MemoryOptions 内存存储配置
type MemoryOptions struct {
	MaxSessions int           // 最大会话数，<=0 使用默认值
	SessionTTL  time.Duration // 会话空闲超时，0 表示不过期
	OnEvict     EvictFunc     // 淘汰回调，可为空
}

// memorySession 内存中的会话记录
type memorySession struct {
	id           string
	turns        []models.Turn
	createdAt    time.Time
	lastActivity time.Time
	elem         *list.Element
}

// MemoryStore 进程内会话存储，按LRU淘汰并支持空闲过期
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	lru      *list.List // 队首为最近使用
	locker   *Locker
	opts     MemoryOptions
	now      func() time.Time
}

// NewMemoryStore 创建内存存储
func NewMemoryStore(opts MemoryOptions) *MemoryStore {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		lru:      list.New(),
		locker:   NewLocker(),
		opts:     opts,
		now:      time.Now,
	}
}

// getOrCreateLocked 调用方需持有写锁
func (s *MemoryStore) getOrCreateLocked(sessionID string) *memorySession {
	now := s.now()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.lastActivity = now
		s.lru.MoveToFront(sess.elem)
		return sess
	}

	sess := &memorySession{
		id:           sessionID,
		turns:        make([]models.Turn, 0),
		createdAt:    now,
		lastActivity: now,
	}
	sess.elem = s.lru.PushFront(sess)
	s.sessions[sessionID] = sess
	s.evictOverflowLocked(sess)
	return sess
}

// evictOverflowLocked 从最久未使用的一端淘汰超出容量的会话，跳过被锁定的会话和刚创建的keep
func (s *MemoryStore) evictOverflowLocked(keep *memorySession) {
	for e := s.lru.Back(); e != nil && len(s.sessions) > s.opts.MaxSessions; {
		prev := e.Prev()
		sess := e.Value.(*memorySession)
		if sess != keep && !s.locker.Held(sess.id) {
			s.removeLocked(sess)
			s.notify(sess.id, EvictedCapacity)
		}
		e = prev
	}
}

func (s *MemoryStore) removeLocked(sess *memorySession) {
	s.lru.Remove(sess.elem)
	delete(s.sessions, sess.id)
}

func (s *MemoryStore) notify(sessionID string, reason EvictionReason) {
	if s.opts.OnEvict != nil {
		s.opts.OnEvict(sessionID, reason)
	}
}

func (s *MemoryStore) info(sess *memorySession) *models.SessionInfo {
	return &models.SessionInfo{
		ID:           sess.id,
		CreatedAt:    sess.createdAt,
		LastActivity: sess.lastActivity,
		TurnCount:    len(sess.turns),
	}
}

// GetOrCreate 获取或创建会话
func (s *MemoryStore) GetOrCreate(_ context.Context, sessionID string) (*models.SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info(s.getOrCreateLocked(sessionID)), nil
}

// Append 追加消息
func (s *MemoryStore) Append(_ context.Context, sessionID string, turn models.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(sessionID)
	sess.turns = append(sess.turns, turn)
	return nil
}

// Snapshot 获取消息副本
func (s *MemoryStore) Snapshot(_ context.Context, sessionID string) ([]models.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return []models.Turn{}, nil
	}
	turns := make([]models.Turn, len(sess.turns))
	copy(turns, sess.turns)
	return turns, nil
}

// Lock 获取会话独占锁
func (s *MemoryStore) Lock(ctx context.Context, sessionID string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := s.locker.Lock(sessionID)

	// 已存在的会话刷新LRU位置和活跃时间，不存在时不创建
	s.mu.Lock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.lastActivity = s.now()
		s.lru.MoveToFront(sess.elem)
	}
	s.mu.Unlock()

	return unlock, nil
}

// Delete 删除会话
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[sessionID]; ok {
		s.removeLocked(sess)
	}
	return nil
}

// Len 会话数量
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}

// EvictExpired 淘汰空闲超时的会话
func (s *MemoryStore) EvictExpired(_ context.Context, now time.Time) (int, error) {
	if s.opts.SessionTTL <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for e := s.lru.Back(); e != nil; {
		prev := e.Prev()
		sess := e.Value.(*memorySession)
		// 链表按最近使用排序，遇到未过期的会话即可停止
		if now.Sub(sess.lastActivity) <= s.opts.SessionTTL {
			break
		}
		if !s.locker.Held(sess.id) {
			s.removeLocked(sess)
			s.notify(sess.id, EvictedExpired)
			removed++
		}
		e = prev
	}
	return removed, nil
}
