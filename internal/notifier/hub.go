package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xaenox/focusguard/internal/models"
)

const (
	MessageDistraction       = "distraction_notification"
	MessageReminder          = "reminder_notification"
	MessageHeartbeat         = "heartbeat"
	MessageHeartbeatResponse = "heartbeat_response"
	MessageTestNotification  = "test_notification"

	writeWait = 10 * time.Second
)

// Envelope is the frame exchanged with socket clients.
type Envelope struct {
	Type   string      `json:"type"`
	Status string      `json:"status,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) writeJSON(v interface{}) error {
	return c.writeJSONContext(context.Background(), v)
}

// writeJSONContext writes within writeWait or the context deadline,
// whichever comes first.
func (c *client) writeJSONContext(ctx context.Context, v interface{}) error {
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteJSON(v)
}

// Hub keeps one WebSocket connection per username. A newer connection
// replaces the previous one.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[string]*client
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[string]*client),
	}
}

// ServeWS upgrades the request and serves the user's socket until it
// closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, username string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err), zap.String("username", username))
		return
	}

	c := &client{conn: conn}
	h.register(username, c)
	h.logger.Info("WebSocket connected", zap.String("username", username))

	defer func() {
		h.unregister(username, c)
		conn.Close()
		h.logger.Info("WebSocket disconnected", zap.String("username", username))
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case MessageHeartbeat:
			err = c.writeJSON(Envelope{Type: MessageHeartbeatResponse, Status: "ok"})
		case MessageTestNotification:
			err = c.writeJSON(Envelope{Type: MessageDistraction, Data: testNotification(username)})
		}
		if err != nil {
			return
		}
	}
}

func (h *Hub) register(username string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[username]; ok {
		old.conn.Close()
	}
	h.clients[username] = c
}

func (h *Hub) unregister(username string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[username] == c {
		delete(h.clients, username)
	}
}

// Connected reports whether the user has an open socket.
func (h *Hub) Connected(username string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[username]
	return ok
}

// Push sends the notification to the user's socket, if any. A broken
// connection is dropped.
func (h *Hub) Push(ctx context.Context, username string, n *models.NotificationEvent) error {
	h.mu.RLock()
	c, ok := h.clients[username]
	h.mu.RUnlock()
	if !ok {
		return nil
	}

	frame := Envelope{Type: MessageDistraction, Data: n}
	if n.Category == models.NotificationCategoryReminder {
		frame.Type = MessageReminder
	}
	if err := c.writeJSONContext(ctx, frame); err != nil {
		h.unregister(username, c)
		c.conn.Close()
		return err
	}
	return nil
}

func testNotification(username string) *models.NotificationEvent {
	return &models.NotificationEvent{
		ID:               uuid.New().String(),
		Username:         username,
		Message:          "Test notification",
		Category:         models.NotificationCategoryDistraction,
		Tier:             models.TierStandard,
		SoundType:        models.SoundDefault,
		CreatedAt:        time.Now().UTC(),
		WindowTitle:      "Test",
		DistractionCount: 1,
	}
}
