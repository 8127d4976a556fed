package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/your-org/fdsync/internal/models"
	"github.com/your-org/fdsync/internal/observability"
	"github.com/your-org/fdsync/internal/reconcile"
	"github.com/your-org/fdsync/pkg/dto"
)

const (
	EventPassPlanned  = "pass_planned"
	EventPassFinished = "pass_finished"
	EventRunFinished  = "run_finished"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is enforced by the cors middleware
	},
}

// Client represents a connected WebSocket client.
type Client struct {
	conn  *websocket.Conn
	send  chan []byte
	group string // optional filter
}

// Hub fans run progress out to WebSocket clients. It implements
// reconcile.Observer.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan message
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

type message struct {
	group string
	data  []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub event loop. Call this in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			observability.WSConnections.Inc()
			slog.Debug("ws client connected", "filter", client.group)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				observability.WSConnections.Dec()
			}
			h.mu.Unlock()
			slog.Debug("ws client disconnected")

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.group != "" && client.group != msg.group {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// slow client
					delete(h.clients, client)
					close(client.send)
					observability.WSConnections.Dec()
				}
			}
			h.mu.Unlock()
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues event for every matching client. It never blocks the
// run; events are dropped when the queue is full.
func (h *Hub) Broadcast(event dto.WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshal ws event", "error", err)
		return
	}
	select {
	case h.broadcast <- message{group: event.Group, data: data}:
	default:
		slog.Warn("ws broadcast queue full, event dropped", "type", event.Type)
	}
}

func (h *Hub) PassPlanned(g models.TenantGroup, p reconcile.Plan) {
	h.Broadcast(dto.WSEvent{Type: EventPassPlanned, Group: g.Name, Data: p})
}

func (h *Hub) PassFinished(g models.TenantGroup, r reconcile.PassReport) {
	h.Broadcast(dto.WSEvent{Type: EventPassFinished, Group: g.Name, Data: r})
}

// RunFinished sends the final report of a run.
func (h *Hub) RunFinished(r *reconcile.RunReport) {
	h.Broadcast(dto.WSEvent{Type: EventRunFinished, RunID: r.ID, Group: r.Group.Name, Data: r})
}

// HandleWS handles WebSocket upgrade requests. ?group=<name> limits the
// stream to one tenant group.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "error", err)
		return
	}

	client := &Client{
		conn:  conn,
		send:  make(chan []byte, 64),
		group: c.Query("group"),
	}

	h.register <- client

	go client.writePump()
	go client.readPump(h)
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	for {
		// Incoming messages are ignored; reads only detect disconnection.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
