package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"ai_chat_relay/internal/config"
	"ai_chat_relay/internal/models"
)

const writeWait = 10 * time.Second

// DialogMessage WebSocket上行消息
type DialogMessage struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// DialogResponse WebSocket下行消息，reply和error二选一
type DialogResponse struct {
	SessionID string `json:"sessionId"`
	Reply     string `json:"reply,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DialogHandler WebSocket对话处理器
type DialogHandler struct {
	service  models.DialogService
	upgrader websocket.Upgrader
	cfg      config.WebSocketConfig
}

// dialogConn 单个WebSocket连接，写操作需要加锁
type dialogConn struct {
	ws        *websocket.Conn
	sessionID string // 连接级默认会话ID
	mu        sync.Mutex
}

func (c *dialogConn) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(messageType, data)
}

// NewDialogHandler 创建WebSocket对话处理器
func NewDialogHandler(service models.DialogService, cfg config.WebSocketConfig) *DialogHandler {
	return &DialogHandler{
		service: service,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket 处理WebSocket连接
func (h *DialogHandler) HandleWebSocket(c *gin.Context) {
	// 升级HTTP连接为WebSocket
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("升级WebSocket连接失败")
		return
	}

	conn := &dialogConn{
		ws:        ws,
		sessionID: c.Query("session_id"),
	}
	h.handleConn(conn)
}

// handleConn 按顺序处理一个连接上的消息
func (h *DialogHandler) handleConn(conn *dialogConn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		conn.ws.Close()
	}()

	if h.cfg.PongWait > 0 {
		_ = conn.ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
		conn.ws.SetPongHandler(func(string) error {
			return conn.ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
		})
	}
	if h.cfg.PingPeriod > 0 {
		go h.keepAlive(ctx, conn)
	}

	for {
		messageType, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("读取WebSocket消息失败")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		resp := h.process(ctx, conn, data)

		responseJSON, err := json.Marshal(resp)
		if err != nil {
			log.Error().Err(err).Msg("序列化响应失败")
			continue
		}
		if err := conn.write(websocket.TextMessage, responseJSON); err != nil {
			log.Warn().Err(err).Msg("发送响应失败")
			return
		}
	}
}

// process 处理一条上行消息
func (h *DialogHandler) process(ctx context.Context, conn *dialogConn, data []byte) DialogResponse {
	var msg DialogMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return DialogResponse{Error: msgRequired}
	}
	if msg.SessionID == "" {
		msg.SessionID = conn.sessionID
	}

	resp := DialogResponse{SessionID: msg.SessionID}
	reply, err := h.service.HandleTurn(ctx, msg.SessionID, msg.Message)
	if err != nil {
		_, resp.Error = errorStatus(err)
		return resp
	}
	resp.Reply = reply
	return resp
}

// keepAlive 定期发送Ping
func (h *DialogHandler) keepAlive(ctx context.Context, conn *dialogConn) {
	ticker := time.NewTicker(h.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
