package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chatrelay/internal/handlers"
	"chatrelay/internal/logging"
	"chatrelay/internal/middleware"
	"chatrelay/internal/models"
	"chatrelay/internal/services"
)

// Frame types sent to clients.
const (
	TypeStatus        = "status"
	TypeChatReply     = "chat_reply"
	TypeEndpointEvent = "endpoint_event"
	TypeError         = "error"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type chatService interface {
	Reply(ctx context.Context, req models.ChatRequest) models.ChatResponse
	Status() models.StatusResponse
}

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg models.WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub serves chat turns over WebSocket and pushes endpoint changes to
// every connected client.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*client
	chat    chatService
	bus     services.EventBus
	limiter *middleware.RateLimiter
}

// NewHub accepts a nil bus or limiter. The limiter is the one guarding
// POST /chat, so both transports share a caller's budget.
func NewHub(chat chatService, bus services.EventBus, limiter *middleware.RateLimiter) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]*client),
		chat:    chat,
		bus:     bus,
		limiter: limiter,
	}
}

// Start subscribes to endpoint events and relays them until ctx is done.
func (h *Hub) Start(ctx context.Context) error {
	if h.bus == nil {
		return nil
	}
	events, err := h.bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	go func() {
		for evt := range events {
			h.broadcast(models.WSMessage{Type: TypeEndpointEvent, Payload: evt})
		}
	}()
	return nil
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed", "err", err)
		return
	}

	c := &client{id: uuid.New(), conn: conn}
	h.register(c)
	defer h.unregister(c)

	if err := c.send(models.WSMessage{Type: TypeStatus, Payload: h.chat.Status()}); err != nil {
		return
	}

	// Turns on one connection are answered in order.
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warn("WebSocket read failed", "conn", c.id, "err", err)
			}
			return
		}

		var req models.ChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.send(errorFrame("VALIDATION_ERROR", "Invalid message", nil))
			continue
		}
		if err := handlers.ValidateChatRequest(req); err != nil {
			var fields map[string]string
			var verr *services.ValidationError
			if errors.As(err, &verr) {
				fields = verr.Fields
			}
			c.send(errorFrame("VALIDATION_ERROR", "Validation failed", fields))
			continue
		}

		if h.limiter != nil && !h.limiter.AllowRequest(r) {
			c.send(errorFrame("RATE_LIMITED", "Too many requests. Please try again later.", nil))
			continue
		}

		resp := h.chat.Reply(r.Context(), req)
		if err := c.send(models.WSMessage{Type: TypeChatReply, Payload: resp}); err != nil {
			return
		}
	}
}

// Count reports the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close drops every client connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.conn.Close()
		delete(h.clients, id)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	logging.Info("WebSocket connected", "conn", c.id, "total", total)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()

	c.conn.Close()
	logging.Info("WebSocket disconnected", "conn", c.id)
}

func (h *Hub) broadcast(msg models.WSMessage) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(msg); err != nil {
			logging.Debug("dropping endpoint event for client", "conn", c.id, "err", err)
		}
	}
}

func errorFrame(code, message string, fields map[string]string) models.WSMessage {
	return models.WSMessage{
		Type:    TypeError,
		Payload: models.APIError{Code: code, Message: message, Fields: fields},
	}
}
