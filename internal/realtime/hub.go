package realtime

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"restopos/backend/internal/domain"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is how many events a client may fall behind before it is dropped.
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client owns one websocket connection. Only its writer loop in Serve
// touches the connection for writes.
type client struct {
	conn *websocket.Conn
	send chan any

	dropOnce sync.Once
	dropped  chan struct{}
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn:    conn,
		send:    make(chan any, sendBuffer),
		dropped: make(chan struct{}),
	}
}

// enqueue never blocks; false means the client is too far behind.
func (c *client) enqueue(value any) bool {
	select {
	case <-c.dropped:
		return false
	default:
	}
	select {
	case c.send <- value:
		return true
	default:
		return false
	}
}

func (c *client) drop() {
	c.dropOnce.Do(func() { close(c.dropped) })
}

func (c *client) writeJSON(value any) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(value)
}

type message struct {
	Type string           `json:"type"`
	Data domain.BillEvent `json:"data"`
}

// Hub pushes bill events to websocket clients subscribed per restaurant.
// It satisfies events.Publisher.
type Hub struct {
	logger *zap.Logger

	mu   sync.RWMutex
	subs map[string]map[*client]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger: logger,
		subs:   make(map[string]map[*client]struct{}),
	}
}

func (h *Hub) subscribe(restaurantID string, c *client) (unsubscribe func()) {
	key := strings.TrimSpace(restaurantID)
	if key == "" {
		return func() {}
	}

	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[*client]struct{})
	}
	h.subs[key][c] = struct{}{}
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		h.removeLocked(key, c)
		h.mu.Unlock()
	}
}

func (h *Hub) removeLocked(key string, c *client) {
	clients := h.subs[key]
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.subs, key)
	}
}

// Subscribers returns how many clients are listening for restaurantID.
func (h *Hub) Subscribers(restaurantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[strings.TrimSpace(restaurantID)])
}

// Publish queues the event for every subscriber of the restaurant and
// returns without waiting on the network. Clients whose queue is full are
// disconnected.
func (h *Hub) Publish(_ context.Context, event domain.BillEvent) error {
	key := strings.TrimSpace(event.RestaurantID)
	if key == "" {
		return nil
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.subs[key]))
	for c := range h.subs[key] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	msg := message{Type: event.Type, Data: event}
	for _, c := range clients {
		if !c.enqueue(msg) {
			h.logger.Debug("dropping slow websocket client", zap.String("restaurant_id", key))
			c.drop()
			h.mu.Lock()
			h.removeLocked(key, c)
			h.mu.Unlock()
		}
	}
	return nil
}

// Serve upgrades the request and streams bill events for restaurantID until
// the client disconnects or the request context ends. Authentication happens
// before Serve is called.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, restaurantID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := newClient(conn)
	unsubscribe := h.subscribe(restaurantID, c)
	defer unsubscribe()

	// events published meanwhile wait in c.send
	if err := c.writeJSON(map[string]any{"type": "bills.subscribed", "restaurant_id": restaurantID, "at": time.Now().UTC()}); err != nil {
		return
	}

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, readErr := conn.ReadMessage(); readErr != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.writeJSON(msg); err != nil {
				h.logger.Debug("websocket write failed", zap.String("restaurant_id", restaurantID), zap.Error(err))
				return
			}
		case <-c.dropped:
			return
		case <-clientClosed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
