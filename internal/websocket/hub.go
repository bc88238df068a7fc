package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub relays Redis pub/sub channels to websocket connections. Each topic is
// one channel; the subscription lives while the topic has connections.
type Hub struct {
	mu          sync.RWMutex
	connections map[string][]*websocket.Conn
	redisClient *redis.Client
	cancelFuncs map[string]context.CancelFunc
}

func NewHub(redisClient *redis.Client) *Hub {
	return &Hub{
		connections: make(map[string][]*websocket.Conn),
		redisClient: redisClient,
		cancelFuncs: make(map[string]context.CancelFunc),
	}
}

// Handler upgrades requests and attaches them to topic.
func (h *Hub) Handler(topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		h.registerConnection(topic, conn)

		// Keep connection alive and handle disconnect
		go func() {
			defer h.unregisterConnection(topic, conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

func (h *Hub) registerConnection(topic string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[topic] = append(h.connections[topic], conn)

	if len(h.connections[topic]) == 1 && h.redisClient != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[topic] = cancel
		go h.subscribe(ctx, topic)
	}

	log.Printf("WebSocket connected: %s (total: %d)", topic, len(h.connections[topic]))
}

func (h *Hub) unregisterConnection(topic string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	conns := h.connections[topic]
	for i, c := range conns {
		if c == conn {
			h.connections[topic] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[topic]) == 0 {
		delete(h.connections, topic)
		if cancel, ok := h.cancelFuncs[topic]; ok {
			cancel()
			delete(h.cancelFuncs, topic)
		}
	}

	log.Printf("WebSocket disconnected: %s", topic)
}

func (h *Hub) subscribe(ctx context.Context, topic string) {
	pubsub := h.redisClient.Subscribe(ctx, topic)
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
			h.broadcast(topic, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(topic string, data []byte) {
	// gorilla connections allow a single concurrent writer
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, conn := range h.connections[topic] {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("WebSocket write failed on %s: %v", topic, err)
		}
	}
}

// Send marshals msg and writes it to every connection on topic.
func (h *Hub) Send(topic string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.broadcast(topic, data)
}

// Connections reports how many clients listen on topic.
func (h *Hub) Connections(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[topic])
}
