package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ai_chat_relay/internal/models"
)

// ChatRequest 提交对话请求
type ChatRequest struct {
	SessionID      string `json:"sessionId"`
	SessionIDSnake string `json:"session_id"`
	Message        string `json:"message"`
}

// ID 返回会话ID，兼容两种字段名
func (r ChatRequest) ID() string {
	if r.SessionID != "" {
		return r.SessionID
	}
	return r.SessionIDSnake
}

// ChatResponse 对话成功响应
type ChatResponse struct {
	Reply string `json:"reply"`
}

// HistoryResponse 对话历史响应
type HistoryResponse struct {
	SessionID string        `json:"sessionId"`
	Messages  []models.Turn `json:"messages"`
}

// ChatHandler 对话处理器
type ChatHandler struct {
	service models.DialogService
}

// NewChatHandler 创建对话处理器
func NewChatHandler(service models.DialogService) *ChatHandler {
	return &ChatHandler{service: service}
}

// HandleChat POST /chat
func (h *ChatHandler) HandleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgRequired})
		return
	}

	reply, err := h.service.HandleTurn(c.Request.Context(), req.ID(), req.Message)
	if err != nil {
		status, msg := errorStatus(err)
		c.JSON(status, ErrorResponse{Error: msg})
		return
	}

	c.JSON(http.StatusOK, ChatResponse{Reply: reply})
}

// HandleHistory GET /chat/:sessionId/history
func (h *ChatHandler) HandleHistory(c *gin.Context) {
	sessionID := c.Param("sessionId")
	turns, err := h.service.GetHistory(c.Request.Context(), sessionID)
	if err != nil {
		status, msg := errorStatus(err)
		c.JSON(status, ErrorResponse{Error: msg})
		return
	}
	c.JSON(http.StatusOK, HistoryResponse{SessionID: sessionID, Messages: turns})
}

// HandleClear DELETE /chat/:sessionId
func (h *ChatHandler) HandleClear(c *gin.Context) {
	if err := h.service.ClearHistory(c.Request.Context(), c.Param("sessionId")); err != nil {
		status, msg := errorStatus(err)
		c.JSON(status, ErrorResponse{Error: msg})
		return
	}
	c.Status(http.StatusNoContent)
}
