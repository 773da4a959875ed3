package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ai_chat_relay/internal/config"
	"ai_chat_relay/internal/metrics"
	"ai_chat_relay/internal/models"
	"ai_chat_relay/internal/store"
)

const tracerName = "ai_chat_relay/services"

// 对话结果标签
const (
	statusOK            = "ok"
	statusInvalid       = "invalid"
	statusProviderError = "provider_error"
	statusInternalError = "internal_error"
)

// Options 对话服务配置
type Options struct {
	Model           string           // 请求中携带的模型名称
	SystemPrompt    string           // 每次请求前置的系统指令
	MaxHistoryTurns int              // 发送的最大历史消息数，0表示全部
	Metrics         *metrics.Metrics // 可为空
}

// DialogService 处理对话服务
//
// 一次对话的流程：校验 -> 锁定会话 -> 记录用户消息 -> 调用模型 -> 记录助手回复。
// 同一会话的对话串行执行，不同会话互不影响。
type DialogService struct {
	store    store.Store
	provider models.CompletionProvider
	opts     Options
	tracer   trace.Tracer
}

// NewDialogService 创建新的对话服务
func NewDialogService(st store.Store, provider models.CompletionProvider, opts Options) *DialogService {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = config.DefaultSystemPrompt
	}
	return &DialogService{
		store:    st,
		provider: provider,
		opts:     opts,
		tracer:   otel.Tracer(tracerName),
	}
}

// HandleTurn 处理用户消息
func (s *DialogService) HandleTurn(ctx context.Context, sessionID string, message string) (reply string, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "relay.HandleTurn",
		trace.WithAttributes(attribute.String("session.id", sessionID)))

	defer func() {
		if r := recover(); r != nil {
			reply, err = "", internalError("unexpected failure", fmt.Errorf("panic: %v", r))
		}
		s.finish(span, sessionID, start, err)
	}()

	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(message) == "" {
		return "", validationError("sessionId and message are required")
	}

	unlock, err := s.store.Lock(ctx, sessionID)
	if err != nil {
		return "", internalError("lock session", err)
	}
	defer unlock()

	// 添加用户消息到历史记录
	if err := s.store.Append(ctx, sessionID, models.NewTurn(models.RoleUser, message)); err != nil {
		return "", internalError("record user turn", err)
	}

	history, err := s.store.Snapshot(ctx, sessionID)
	if err != nil {
		return "", internalError("read transcript", err)
	}

	resp, err := s.complete(ctx, s.buildRequest(history))
	if err != nil {
		return "", err
	}

	// 添加助手回复到历史记录
	if err := s.store.Append(ctx, sessionID, models.NewTurn(models.RoleAssistant, resp.Content)); err != nil {
		return "", internalError("record assistant turn", err)
	}

	return resp.Content, nil
}

// buildRequest 系统指令 + 历史记录（按上限截取最近的消息）
func (s *DialogService) buildRequest(history []models.Turn) *models.CompletionRequest {
	if n := s.opts.MaxHistoryTurns; n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}

	messages := make([]models.Turn, 0, len(history)+1)
	messages = append(messages, models.NewTurn(models.RoleSystem, s.opts.SystemPrompt))
	messages = append(messages, history...)

	return &models.CompletionRequest{
		Model:    s.opts.Model,
		Messages: messages,
	}
}

// complete 调用模型服务，不重试，也不随调用方取消
func (s *DialogService) complete(ctx context.Context, req *models.CompletionRequest) (*models.CompletionResponse, error) {
	name := s.provider.Name()
	ctx, span := s.tracer.Start(context.WithoutCancel(ctx), "provider.Complete",
		trace.WithAttributes(
			attribute.String("provider.name", name),
			attribute.String("provider.model", req.Model),
			attribute.Int("provider.messages", len(req.Messages)),
		))
	defer span.End()

	start := time.Now()
	resp, err := s.provider.Complete(ctx, req)
	if m := s.opts.Metrics; m != nil {
		m.ProviderDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}

	if err == nil && (resp == nil || resp.Content == "") {
		err = fmt.Errorf("%s returned an empty reply", name)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if m := s.opts.Metrics; m != nil {
			m.ProviderErrors.WithLabelValues(name).Inc()
		}
		return nil, providerError("Failed to get response from AI", err)
	}

	span.SetAttributes(
		attribute.Int("provider.prompt_tokens", resp.Usage.PromptTokens),
		attribute.Int("provider.completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp, nil
}

// finish 记录日志、指标和span状态
func (s *DialogService) finish(span trace.Span, sessionID string, start time.Time, err error) {
	defer span.End()

	latency := time.Since(start)
	status := statusOK
	switch {
	case err == nil:
		log.Info().Str("session_id", sessionID).Dur("latency", latency).Msg("对话完成")
	case errors.Is(err, ErrValidation):
		status = statusInvalid
		log.Debug().Err(err).Msg("请求参数无效")
	case errors.Is(err, ErrProvider):
		status = statusProviderError
		log.Error().Err(err).Str("session_id", sessionID).Dur("latency", latency).Msg("模型服务调用失败")
	default:
		status = statusInternalError
		log.Error().Err(err).Str("session_id", sessionID).Msg("对话处理内部错误")
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	}
	span.SetAttributes(attribute.String("relay.status", status))

	if m := s.opts.Metrics; m != nil {
		m.TurnsTotal.WithLabelValues(status).Inc()
		m.TurnDuration.Observe(latency.Seconds())
	}
}

// GetHistory 获取对话历史
func (s *DialogService) GetHistory(ctx context.Context, sessionID string) ([]models.Turn, error) {
	if sessionID == "" {
		return nil, validationError("sessionId is required")
	}
	turns, err := s.store.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, internalError("read transcript", err)
	}
	return turns, nil
}

// ClearHistory 清除对话历史，会等待进行中的对话结束
func (s *DialogService) ClearHistory(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return validationError("sessionId is required")
	}

	unlock, err := s.store.Lock(ctx, sessionID)
	if err != nil {
		return internalError("lock session", err)
	}
	defer unlock()

	if err := s.store.Delete(ctx, sessionID); err != nil {
		return internalError("delete session", err)
	}
	log.Info().Str("session_id", sessionID).Msg("对话历史已清除")
	return nil
}

// SessionCount 当前会话数
func (s *DialogService) SessionCount(ctx context.Context) (int, error) {
	n, err := s.store.Len(ctx)
	if err != nil {
		return 0, internalError("count sessions", err)
	}
	return n, nil
}

var _ models.DialogService = (*DialogService)(nil)
