// Package logger 基于zerolog的日志初始化
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"ai_chat_relay/internal/config"
)

// Logger 持有全局日志及其文件句柄
type Logger struct {
	zerolog.Logger
	file *lumberjack.Logger
}

// New 按配置创建日志并设置为全局log.Logger
func New(cfg config.LogConfig, console io.Writer) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if console == nil {
		console = os.Stdout
	}
	if cfg.Pretty {
		console = zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: time.RFC3339,
		}
	}
	writers := []io.Writer{console}

	var file *lumberjack.Logger
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("创建日志目录失败: %w", err)
		}
		file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		writers = append(writers, file)
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	log.Logger = logger

	return &Logger{Logger: logger, file: file}, nil
}

// Close 关闭日志文件
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
