// Package config 提供配置加载和管理功能
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// 模型服务名称
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// 存储类型
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// DefaultSystemPrompt 默认系统指令
const DefaultSystemPrompt = "You are a helpful AI support assistant."

// Config 应用程序配置结构
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Provider  ProviderConfig  `yaml:"provider"`
	Relay     RelayConfig     `yaml:"relay"`
	Store     StoreConfig     `yaml:"store"`
	Redis     RedisConfig     `yaml:"redis"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

// ServerConfig HTTP服务器配置
type ServerConfig struct {
	Host string `yaml:"host"` // 服务器监听地址
	Port int    `yaml:"port"` // 服务器监听端口
}

// Addr 监听地址
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ProviderConfig 大模型服务配置
type ProviderConfig struct {
	Name        string  `yaml:"name"`        // openai/anthropic/ollama
	APIKey      string  `yaml:"api_key"`     // API密钥，建议通过环境变量注入
	BaseURL     string  `yaml:"base_url"`    // 服务地址
	Model       string  `yaml:"model"`       // 模型名称
	MaxTokens   int     `yaml:"max_tokens"`  // 最大生成token数
	Temperature float64 `yaml:"temperature"` // 采样温度，0表示使用服务端默认值
}

// RelayConfig 对话中转配置
type RelayConfig struct {
	SystemPrompt    string `yaml:"system_prompt"`     // 系统指令
	MaxHistoryTurns int    `yaml:"max_history_turns"` // 发送给模型的最大历史消息数，0表示不限制
}

// StoreConfig 会话存储配置
type StoreConfig struct {
	Backend         string        `yaml:"backend"`          // memory/redis
	MaxSessions     int           `yaml:"max_sessions"`     // 内存存储最大会话数
	SessionTTL      time.Duration `yaml:"session_ttl"`      // 会话空闲过期时间
	CleanupInterval time.Duration `yaml:"cleanup_interval"` // 清理间隔
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr      string `yaml:"addr"`       // Redis地址
	Password  string `yaml:"password"`   // Redis密码
	DB        int    `yaml:"db"`         // Redis数据库编号
	KeyPrefix string `yaml:"key_prefix"` // key前缀
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`       // debug/info/warn/error
	File       string `yaml:"file"`        // 日志文件，为空则只输出到控制台
	Pretty     bool   `yaml:"pretty"`      // 控制台美化输出
	MaxSize    int    `yaml:"max_size"`    // 单个文件最大MB
	MaxBackups int    `yaml:"max_backups"` // 保留的旧文件数
	MaxAge     int    `yaml:"max_age"`     // 保留天数
	Compress   bool   `yaml:"compress"`    // 是否压缩旧文件
}

// TelemetryConfig 链路追踪配置
type TelemetryConfig struct {
	Tracing   bool   `yaml:"tracing"`    // 是否启用
	TraceFile string `yaml:"trace_file"` // trace输出文件
}

// WebSocketConfig WebSocket配置
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size"`  // 读缓冲区大小
	WriteBufferSize int           `yaml:"write_buffer_size"` // 写缓冲区大小
	PingPeriod      time.Duration `yaml:"ping_period"`       // 心跳间隔
	PongWait        time.Duration `yaml:"pong_wait"`         // 等待Pong响应的超时时间
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 5000,
		},
		Provider: ProviderConfig{
			Name: ProviderOpenAI,
		},
		Relay: RelayConfig{
			SystemPrompt: DefaultSystemPrompt,
		},
		Store: StoreConfig{
			Backend:         BackendMemory,
			MaxSessions:     10000,
			SessionTTL:      30 * time.Minute,
			CleanupInterval: time.Minute,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "chat:session:",
		},
		Log: LogConfig{
			Level:      "info",
			Pretty:     true,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		},
		Telemetry: TelemetryConfig{
			TraceFile: "logs/traces.log",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}

// Load 从文件加载配置，文件不存在时使用默认值，随后应用环境变量
func Load(filename string) (*Config, error) {
	config := Default()

	if filename != "" {
		data, err := os.ReadFile(filename)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// 只依赖环境变量运行
		case err != nil:
			return nil, fmt.Errorf("读取配置文件失败: %v", err)
		default:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("解析配置文件失败: %v", err)
			}
		}
	}

	if err := applyEnv(config); err != nil {
		return nil, fmt.Errorf("读取环境变量失败: %v", err)
	}
	applyProviderDefaults(&config.Provider)

	// 验证配置
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return config, nil
}

// applyEnv 用环境变量覆盖配置
func applyEnv(config *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT无效: %v", err)
		}
		config.Server.Port = port
	}
	if v := os.Getenv("RELAY_PROVIDER"); v != "" {
		config.Provider.Name = v
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		config.Provider.APIKey = v
	}
	if v := os.Getenv("RELAY_PROVIDER_API_KEY"); v != "" {
		config.Provider.APIKey = v
	}
	if v := os.Getenv("RELAY_PROVIDER_BASE_URL"); v != "" {
		config.Provider.BaseURL = v
	}
	if v := os.Getenv("RELAY_MODEL"); v != "" {
		config.Provider.Model = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		config.Redis.Addr = v
	}
	if v := os.Getenv("RELAY_LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
	return nil
}

// applyProviderDefaults 按模型服务填充默认地址和模型
func applyProviderDefaults(p *ProviderConfig) {
	switch p.Name {
	case ProviderOpenAI:
		if p.BaseURL == "" {
			p.BaseURL = "https://api.groq.com/openai/v1"
		}
		if p.Model == "" {
			p.Model = "llama-3.1-8b-instant"
		}
	case ProviderAnthropic:
		if p.Model == "" {
			p.Model = "claude-3-5-haiku-latest"
		}
		if p.MaxTokens <= 0 {
			p.MaxTokens = 1024
		}
	case ProviderOllama:
		if p.BaseURL == "" {
			p.BaseURL = "http://localhost:11434"
		}
		if p.Model == "" {
			p.Model = "llama3.1"
		}
	}
}

// validateConfig 验证配置是否有效
func validateConfig(config *Config) error {
	// 验证服务器配置
	if config.Server.Host == "" {
		return ErrEmptyHost
	}
	if config.Server.Port <= 0 {
		return ErrInvalidPort
	}

	// 验证模型服务配置
	switch config.Provider.Name {
	case ProviderOpenAI, ProviderAnthropic:
		if config.Provider.APIKey == "" {
			return ErrEmptyAPIKey
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownProvider, config.Provider.Name)
	}
	if config.Provider.Model == "" {
		return ErrEmptyModel
	}
	if config.Provider.Temperature < 0 || config.Provider.Temperature > 2 {
		return ErrInvalidTemperature
	}

	// 验证中转配置
	if config.Relay.SystemPrompt == "" {
		return ErrEmptySystemPrompt
	}
	if config.Relay.MaxHistoryTurns < 0 {
		return ErrNegativeHistory
	}

	// 验证存储配置
	switch config.Store.Backend {
	case BackendMemory:
		if config.Store.MaxSessions <= 0 {
			config.Store.MaxSessions = 10000
		}
	case BackendRedis:
		if config.Redis.Addr == "" {
			return ErrEmptyRedisAddr
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownBackend, config.Store.Backend)
	}
	if config.Store.CleanupInterval <= 0 {
		config.Store.CleanupInterval = time.Minute
	}

	return nil
}
