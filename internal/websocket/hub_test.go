package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/middleware"
	"chatrelay/internal/models"
	"chatrelay/internal/services"
)

type echoChat struct{}

func (echoChat) Reply(ctx context.Context, req models.ChatRequest) models.ChatResponse {
	return models.ChatResponse{Reply: "echo: " + req.Message, Status: models.ChatStatusOK, Model: "beta"}
}

func (echoChat) Status() models.StatusResponse {
	return models.StatusResponse{Mode: "lazy", Backend: "huggingface", Model: "beta"}
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_ChatOverWebSocket(t *testing.T) {
	hub := NewHub(echoChat{}, nil, nil)
	conn := dial(t, hub)

	status := readFrame(t, conn)
	assert.Equal(t, TypeStatus, status.Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"message":"Hi"}`)))
	reply := readFrame(t, conn)
	require.Equal(t, TypeChatReply, reply.Type)

	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(reply.Payload, &resp))
	assert.Equal(t, "echo: Hi", resp.Reply)
	assert.Equal(t, 1, hub.Count())
}

func TestHub_InvalidTurn(t *testing.T) {
	hub := NewHub(echoChat{}, nil, nil)
	conn := dial(t, hub)
	readFrame(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"message":""}`)))
	f := readFrame(t, conn)
	require.Equal(t, TypeError, f.Type)

	var apiErr models.APIError
	require.NoError(t, json.Unmarshal(f.Payload, &apiErr))
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Contains(t, apiErr.Fields, "message")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	assert.Equal(t, TypeError, readFrame(t, conn).Type)
}

func TestHub_BroadcastsEndpointEvents(t *testing.T) {
	bus := services.NewLocalEventBus()
	hub := NewHub(echoChat{}, bus, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.Start(ctx))

	conn := dial(t, hub)
	readFrame(t, conn)

	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, bus.Publish(context.Background(), models.EndpointEvent{
		Type:  models.EventEndpointInvalidated,
		Model: "alpha",
	}))

	f := readFrame(t, conn)
	require.Equal(t, TypeEndpointEvent, f.Type)
	var evt models.EndpointEvent
	require.NoError(t, json.Unmarshal(f.Payload, &evt))
	assert.Equal(t, "alpha", evt.Model)
}

func TestHub_TurnsShareTheChatRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, time.Minute)
	defer limiter.Stop()

	hub := NewHub(echoChat{}, nil, limiter)
	conn := dial(t, hub)
	readFrame(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"message":"Hi"}`)))
	assert.Equal(t, TypeChatReply, readFrame(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"message":"Hi again"}`)))
	f := readFrame(t, conn)
	require.Equal(t, TypeError, f.Type)

	var apiErr models.APIError
	require.NoError(t, json.Unmarshal(f.Payload, &apiErr))
	assert.Equal(t, "RATE_LIMITED", apiErr.Code)
}
