package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultCleanupInterval 默认清理间隔
const DefaultCleanupInterval = time.Minute

// Cleanup 定期淘汰过期会话
type Cleanup struct {
	store    Store
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewCleanup 创建清理服务
func NewCleanup(store Store, interval time.Duration) *Cleanup {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &Cleanup{
		store:    store,
		interval: interval,
	}
}

// Start 启动清理循环，重复调用无副作用
func (c *Cleanup) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true

	go c.run(runCtx, c.done)

	log.Info().Dur("interval", c.interval).Msg("会话清理服务已启动")
}

// Stop 停止清理循环并等待退出
func (c *Cleanup) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	cancel, done := c.cancel, c.done
	c.running = false
	c.mu.Unlock()

	cancel()
	<-done

	log.Info().Msg("会话清理服务已停止")
}

func (c *Cleanup) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.RunOnce(ctx, now)
		}
	}
}

// RunOnce 执行一次清理
func (c *Cleanup) RunOnce(ctx context.Context, now time.Time) int {
	removed, err := c.store.EvictExpired(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("清理过期会话失败")
		return 0
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("已清理过期会话")
	}
	return removed
}
