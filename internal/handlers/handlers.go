// Package handlers 提供HTTP与WebSocket处理器
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"ai_chat_relay/internal/models"
	"ai_chat_relay/internal/services"
)

// 返回给客户端的错误信息
const (
	msgRequired      = "sessionId and message are required"
	msgProviderError = "Failed to get response from AI"
	msgInternalError = "Internal server error"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}

// RegisterRoutes 注册根路由和健康检查
func RegisterRoutes(r *gin.Engine, service models.DialogService) {
	// 根路由
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "AI Chat API running")
	})

	// 健康检查路由
	r.GET("/health", func(c *gin.Context) {
		sessions, err := service.SessionCount(c.Request.Context())
		if err != nil {
			log.Error().Err(err).Msg("统计会话数失败")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"time":   time.Now().Format(time.RFC3339),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"sessions": sessions,
			"time":     time.Now().Format(time.RFC3339),
		})
	})
}

// errorStatus 将对话错误转换为状态码和对外信息，内部细节只写日志
func errorStatus(err error) (int, string) {
	var re *services.RelayError
	switch {
	case errors.Is(err, services.ErrValidation) && errors.As(err, &re):
		return http.StatusBadRequest, re.Message
	case errors.Is(err, services.ErrProvider):
		return http.StatusInternalServerError, msgProviderError
	default:
		return http.StatusInternalServerError, msgInternalError
	}
}
