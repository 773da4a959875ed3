package handlers_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai_chat_relay/internal/config"
	"ai_chat_relay/internal/handlers"
	"ai_chat_relay/internal/models"
	"ai_chat_relay/internal/services"
	"ai_chat_relay/internal/store"
)

func newWSServer(t *testing.T, st store.Store) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	echo := stubProvider(func(_ context.Context, req *models.CompletionRequest) (*models.CompletionResponse, error) {
		return &models.CompletionResponse{Content: "re:" + req.Messages[len(req.Messages)-1].Content}, nil
	})
	svc := services.NewDialogService(st, echo, services.Options{})

	r := gin.New()
	ws := handlers.NewDialogHandler(svc, config.Default().WebSocket)
	r.GET("/ws", ws.HandleWebSocket)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestDialogHandler_Exchange(t *testing.T) {
	st := store.NewMemoryStore(store.MemoryOptions{})
	conn := dial(t, newWSServer(t, st), "")

	require.NoError(t, conn.WriteJSON(handlers.DialogMessage{SessionID: "abc", Message: "Hello"}))
	var resp handlers.DialogResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "abc", resp.SessionID)
	assert.Equal(t, "re:Hello", resp.Reply)
	assert.Empty(t, resp.Error)

	require.NoError(t, conn.WriteJSON(handlers.DialogMessage{SessionID: "abc", Message: "again"}))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "re:again", resp.Reply)

	turns, err := st.Snapshot(context.Background(), "abc")
	require.NoError(t, err)
	assert.Len(t, turns, 4)
}

func TestDialogHandler_DefaultSessionFromQuery(t *testing.T) {
	st := store.NewMemoryStore(store.MemoryOptions{})
	conn := dial(t, newWSServer(t, st), "?session_id=from-query")

	require.NoError(t, conn.WriteJSON(handlers.DialogMessage{Message: "Hello"}))
	var resp handlers.DialogResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "from-query", resp.SessionID)
	assert.Equal(t, "re:Hello", resp.Reply)
}

func TestDialogHandler_Errors(t *testing.T) {
	conn := dial(t, newWSServer(t, store.NewMemoryStore(store.MemoryOptions{})), "")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var resp handlers.DialogResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "sessionId and message are required", resp.Error)

	require.NoError(t, conn.WriteJSON(handlers.DialogMessage{SessionID: "abc"}))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "sessionId and message are required", resp.Error)
	assert.Empty(t, resp.Reply)
}
