package config

import "errors"

// 配置相关错误
var (
	ErrEmptyHost          = errors.New("服务器地址不能为空")
	ErrInvalidPort        = errors.New("服务器端口必须大于0")
	ErrUnknownProvider    = errors.New("不支持的模型服务")
	ErrEmptyAPIKey        = errors.New("模型服务API密钥不能为空")
	ErrEmptyModel         = errors.New("模型名称不能为空")
	ErrInvalidTemperature = errors.New("采样温度必须在0到2之间")
	ErrUnknownBackend     = errors.New("不支持的存储类型")
	ErrEmptyRedisAddr     = errors.New("Redis地址不能为空")
	ErrNegativeHistory    = errors.New("历史消息上限不能为负数")
	ErrEmptySystemPrompt  = errors.New("系统指令不能为空")
)
