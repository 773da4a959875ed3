// Package routes 组装HTTP路由
package routes

import (
	"github.com/gin-gonic/gin"

	"ai_chat_relay/internal/config"
	"ai_chat_relay/internal/handlers"
	"ai_chat_relay/internal/metrics"
	"ai_chat_relay/internal/middleware"
	"ai_chat_relay/internal/models"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, service models.DialogService, wsConfig config.WebSocketConfig, m *metrics.Metrics) {
	middleware.Setup(r, m)

	// 根路由和健康检查
	handlers.RegisterRoutes(r, service)

	// 注册对话路由
	RegisterChatRoutes(r, service)

	// 注册WebSocket路由
	dialogHandler := handlers.NewDialogHandler(service, wsConfig)
	r.GET("/ws", dialogHandler.HandleWebSocket)

	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}
}

// RegisterChatRoutes 注册对话相关路由
func RegisterChatRoutes(r *gin.Engine, service models.DialogService) {
	chatHandler := handlers.NewChatHandler(service)

	chat := r.Group("/chat")
	{
		chat.POST("", chatHandler.HandleChat)
		chat.GET("/:sessionId/history", chatHandler.HandleHistory)
		chat.DELETE("/:sessionId", chatHandler.HandleClear)
	}
}
