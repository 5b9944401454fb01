package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"lexconsul-backend/internal/models"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TokenParser resolves the ?token= query parameter to a device.
type TokenParser interface {
	ParseDeviceToken(token string) (uuid.UUID, error)
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex // gorilla allows one concurrent writer
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans device events out to that device's open sockets. With a Redis
// client events go through pub/sub so every instance sees them; without one
// they are delivered in-process.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*client
	redisClient *redis.Client
	tokens      TokenParser
	cancelFuncs map[uuid.UUID]context.CancelFunc
}

func NewHub(redisClient *redis.Client, tokens TokenParser) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*client),
		redisClient: redisClient,
		tokens:      tokens,
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
	}
}

func channelFor(deviceID uuid.UUID) string {
	return "device_updates:" + deviceID.String()
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via token query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	deviceID, err := h.tokens.ParseDeviceToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn}
	h.registerConnection(deviceID, c)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(deviceID, c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(deviceID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[deviceID] = append(h.connections[deviceID], c)

	// First socket for this device opens the pub/sub subscription
	if h.redisClient != nil && len(h.connections[deviceID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[deviceID] = cancel
		go h.subscribeToPubSub(ctx, deviceID)
	}

	log.Printf("WebSocket connected: device %s (total: %d)", deviceID, len(h.connections[deviceID]))
}

func (h *Hub) unregisterConnection(deviceID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.conn.Close()

	conns := h.connections[deviceID]
	for i, existing := range conns {
		if existing == c {
			h.connections[deviceID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[deviceID]) == 0 {
		delete(h.connections, deviceID)
		if cancel, ok := h.cancelFuncs[deviceID]; ok {
			cancel()
			delete(h.cancelFuncs, deviceID)
		}
	}

	log.Printf("WebSocket disconnected: device %s", deviceID)
}

func (h *Hub) subscribeToPubSub(ctx context.Context, deviceID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, channelFor(deviceID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(deviceID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(deviceID uuid.UUID, data []byte) {
	h.mu.RLock()
	conns := append([]*client(nil), h.connections[deviceID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.write(data); err != nil {
			log.Printf("WebSocket write to device %s failed: %v", deviceID, err)
		}
	}
}

// Connections reports how many sockets a device has open on this instance.
func (h *Hub) Connections(deviceID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[deviceID])
}

// Publish delivers msg to every socket of the device. Failures are logged;
// events are advisory and never block the caller's operation.
func (h *Hub) Publish(ctx context.Context, deviceID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("WebSocket: failed to encode %s event: %v", msg.Type, err)
		return
	}

	if h.redisClient == nil {
		h.broadcast(deviceID, data)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := h.redisClient.Publish(ctx, channelFor(deviceID), data).Err(); err != nil {
		log.Printf("WebSocket: publish %s for device %s failed: %v", msg.Type, deviceID, err)
	}
}

// Close drops every socket and subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for deviceID, conns := range h.connections {
		for _, c := range conns {
			c.conn.Close()
		}
		if cancel, ok := h.cancelFuncs[deviceID]; ok {
			cancel()
		}
	}
	h.connections = make(map[uuid.UUID][]*client)
	h.cancelFuncs = make(map[uuid.UUID]context.CancelFunc)
}
