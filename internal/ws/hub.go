// Package ws pushes live inbox updates to connected dashboard clients.
// Clients join the room of their resolved tenant; events never cross rooms.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"outreach-gateway/internal/models"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client represents a connected WebSocket client bound to one tenant room.
type Client struct {
	hub    *Hub
	tenant string
	conn   *websocket.Conn
	send   chan []byte
}

type broadcastMsg struct {
	tenant  string
	payload []byte
}

// Hub maintains the set of active clients grouped by tenant and fans events
// out to the owning room only.
type Hub struct {
	rooms      map[string]map[*Client]bool
	broadcast  chan broadcastMsg
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan broadcastMsg),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.tenant] == nil {
				h.rooms[client.tenant] = make(map[*Client]bool)
			}
			h.rooms[client.tenant][client] = true
			h.mu.Unlock()
			slog.Debug("websocket client registered", "tenant", client.tenant)
		case client := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[client.tenant]; ok {
				if _, ok := room[client]; ok {
					delete(room, client)
					close(client.send)
				}
				if len(room) == 0 {
					delete(h.rooms, client.tenant)
				}
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.rooms[msg.tenant] {
				select {
				case client.send <- msg.payload:
				default:
					close(client.send)
					delete(h.rooms[msg.tenant], client)
				}
			}
			h.mu.Unlock()
		}
	}
}

type WSEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func (h *Hub) BroadcastEvent(tenantID, eventType string, data interface{}) {
	payload, err := json.Marshal(WSEvent{Type: eventType, Data: data})
	if err != nil {
		slog.Error("marshaling ws event", "error", err)
		return
	}
	h.broadcast <- broadcastMsg{tenant: tenantID, payload: payload}
}

func (h *Hub) NotifyMessage(tenantID string, msg models.Message) {
	h.BroadcastEvent(tenantID, "new_message", msg)
}

func (h *Hub) ServeWs(tenantID string, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade", "error", err)
		return
	}
	client := &Client{hub: h, tenant: tenantID, conn: conn, send: make(chan []byte, 256)}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		// Clients only listen; reads exist to detect the close.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
