// Package telemetry 初始化OpenTelemetry链路追踪
package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"ai_chat_relay/internal/config"
)

// ServiceName 上报的服务名称
const ServiceName = "ai_chat_relay"

// Init 按配置初始化全局TracerProvider，未启用时返回空操作的关闭函数
func Init(ctx context.Context, cfg config.TelemetryConfig) (func(), error) {
	if !cfg.Tracing {
		return func() {}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("创建resource失败: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.TraceFile), 0755); err != nil {
		return nil, fmt.Errorf("创建trace目录失败: %w", err)
	}

	traceFile := &lumberjack.Logger{
		Filename:   cfg.TraceFile,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(traceFile))
	if err != nil {
		return nil, fmt.Errorf("创建trace导出器失败: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	log.Info().Str("file", cfg.TraceFile).Msg("链路追踪已启用")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("关闭TracerProvider失败")
		}
		if err := traceFile.Close(); err != nil {
			log.Error().Err(err).Msg("关闭trace文件失败")
		}
	}, nil
}
