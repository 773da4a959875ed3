package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ai_chat_relay/internal/clients"
	"ai_chat_relay/internal/config"
	"ai_chat_relay/internal/logger"
	"ai_chat_relay/internal/metrics"
	"ai_chat_relay/internal/routes"
	"ai_chat_relay/internal/services"
	"ai_chat_relay/internal/store"
	"ai_chat_relay/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动HTTP对话服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, configFile)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "config.yaml", "配置文件路径")
	return cmd
}

func runServe(ctx context.Context, configFile string) error {
	// 加载配置
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	logs, err := logger.New(cfg.Log, os.Stdout)
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logs.Close()

	log.Info().
		Str("provider", cfg.Provider.Name).
		Str("model", cfg.Provider.Model).
		Str("store", cfg.Store.Backend).
		Msg("AI对话中转服务启动中...")

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("初始化链路追踪失败: %w", err)
	}
	defer shutdownTracing()

	m := metrics.NewMetrics()

	st, closeStore, err := newStore(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer closeStore()

	provider, err := clients.NewProvider(cfg.Provider)
	if err != nil {
		return fmt.Errorf("创建模型客户端失败: %w", err)
	}

	dialogService := services.NewDialogService(st, provider, services.Options{
		Model:           cfg.Provider.Model,
		SystemPrompt:    cfg.Relay.SystemPrompt,
		MaxHistoryTurns: cfg.Relay.MaxHistoryTurns,
		Metrics:         m,
	})
	m.RegisterSessionGauge(func() float64 {
		n, err := st.Len(context.Background())
		if err != nil {
			return 0
		}
		return float64(n)
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	routes.RegisterRoutes(r, dialogService, cfg.WebSocket, m)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	cleanup := store.NewCleanup(st, cfg.Store.CleanupInterval)

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("HTTP服务器启动")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP服务器错误: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		cleanup.Start(egCtx)
		<-egCtx.Done()
		cleanup.Stop()

		log.Info().Msg("正在关闭服务器...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("关闭服务器失败: %w", err)
		}
		log.Info().Msg("服务器已关闭")
		return nil
	})

	return eg.Wait()
}

// newStore 按配置创建会话存储，返回的关闭函数总是可调用
func newStore(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("连接Redis失败: %w", err)
		}

		rs := store.NewRedisStore(client, store.RedisOptions{
			KeyPrefix:  cfg.Redis.KeyPrefix,
			SessionTTL: cfg.Store.SessionTTL,
		})
		return rs, func() {
			if err := rs.Close(); err != nil {
				log.Warn().Err(err).Msg("关闭Redis连接失败")
			}
		}, nil
	default:
		ms := store.NewMemoryStore(store.MemoryOptions{
			MaxSessions: cfg.Store.MaxSessions,
			SessionTTL:  cfg.Store.SessionTTL,
			OnEvict: func(sessionID string, reason store.EvictionReason) {
				m.SessionsEvicted.WithLabelValues(string(reason)).Inc()
				log.Debug().Str("session_id", sessionID).Str("reason", string(reason)).Msg("会话已淘汰")
			},
		})
		return ms, func() {}, nil
	}
}
