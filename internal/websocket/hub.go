// Package websocket pushes live pipeline progress to a single observer
// client over GET /ws.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Типы событий, публикуемых хабом.
const (
	EventStage    = "stage"
	EventProgress = "progress"
	EventFinding  = "finding"
	EventComplete = "complete"
)

type Message struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// Hub управляет одним активным соединением. События без подключённого
// клиента отбрасываются, никогда не буферизуются.
type Hub struct {
	log        zerolog.Logger
	client     *client // nil, если нет активного наблюдателя
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{} // закрыт после выхода Run
	mu         sync.RWMutex
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:        log,
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// client представляет активное WebSocket соединение.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Run processes hub events until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			if h.client != nil {
				close(h.client.send)
				h.client = nil
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			// Новый наблюдатель вытесняет предыдущего.
			h.mu.Lock()
			if h.client != nil {
				close(h.client.send)
			}
			h.client = c
			h.mu.Unlock()
			h.log.Info().Msg("observer connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if h.client == c {
				close(h.client.send)
				h.client = nil
				h.log.Info().Msg("observer disconnected")
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			if h.client != nil {
				select {
				case h.client.send <- message:
				default:
					// Медленный наблюдатель: отключаем, чтобы не копить очередь.
					h.log.Warn().Msg("observer send queue full, closing connection")
					close(h.client.send)
					h.client = nil
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) hasObserver() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.client != nil
}

// Broadcast заворачивает данные в типизированное сообщение и передаёт их
// циклу хаба. Без наблюдателя событие пропускается.
func (h *Hub) Broadcast(eventType string, data any) {
	if !h.hasObserver() {
		return
	}

	payload, err := json.Marshal(Message{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to marshal event")
		return
	}

	select {
	case h.broadcast <- payload:
	default:
	}
}

// StageChanged notifies the observer of a pipeline stage transition.
func (h *Hub) StageChanged(stage string) {
	h.Broadcast(EventStage, map[string]any{"stage": stage})
}

// TestCompleted is the replay engine progress sink.
func (h *Hub) TestCompleted(testID string, completed, total int, success bool) {
	h.Broadcast(EventProgress, map[string]any{
		"test_id":   testID,
		"completed": completed,
		"total":     total,
		"success":   success,
	})
}

// FindingDetected is the analyzer finding sink.
func (h *Hub) FindingDetected(severity, endpoint, testType string) {
	h.Broadcast(EventFinding, map[string]any{
		"severity":  severity,
		"endpoint":  endpoint,
		"test_type": testType,
	})
}

// Completed signals the end of the run.
func (h *Hub) Completed(findings int) {
	h.Broadcast(EventComplete, map[string]any{"findings": findings})
}

// ServeWS upgrades the request and registers the connection with the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}
	select {
	case h.register <- c:
	case <-h.done:
		// Цикл хаба уже остановлен, регистрировать некого.
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	for {
		// Читаем входящие сообщения, чтобы заметить отключение клиента.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug().Err(err).Msg("observer read error")
			}
			break
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for {
		message, ok := <-c.send
		if !ok {
			// Канал send закрыт хабом.
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
		c.conn.WriteMessage(websocket.TextMessage, message)
	}
}
