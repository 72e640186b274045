package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/antigravity-dev/taskhub/internal/bus"
	"github.com/antigravity-dev/taskhub/internal/domain"
)

// wsBufferSize bounds how many pending messages queue for a slow client
// before it's dropped, matching the teacher-pack reference's broadcast hub
// sizing.
const wsBufferSize = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one websocket-connected discussion feed subscriber, scoped to
// a single namespace.
type Client struct {
	namespace string
	conn      *websocket.Conn
	send      chan []byte
}

// Hub fans out a namespace's discussion messages (received over the
// post-commit bus) to every websocket client watching that namespace. One
// NATS subscription is opened per namespace, lazily, on first client.
type Hub struct {
	busClient *bus.Client
	logger    *slog.Logger

	mu    sync.Mutex
	rooms map[string]map[*Client]bool
	subs  map[string]bool
}

// NewHub builds a Hub that fans discussion messages out from busClient.
func NewHub(busClient *bus.Client, logger *slog.Logger) *Hub {
	return &Hub{
		busClient: busClient,
		logger:    logger,
		rooms:     make(map[string]map[*Client]bool),
		subs:      make(map[string]bool),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[c.namespace] == nil {
		h.rooms[c.namespace] = make(map[*Client]bool)
	}
	h.rooms[c.namespace][c] = true

	if !h.subs[c.namespace] {
		subject := bus.DiscussionSubject(c.namespace)
		_, err := bus.SubscribeJSON(h.busClient, subject, func(msg domain.DiscussionMessage) {
			h.broadcast(c.namespace, msg)
		})
		if err != nil {
			h.logger.Error("ws: subscribe to discussion subject failed", "namespace", c.namespace, "error", err)
			return
		}
		h.subs[c.namespace] = true
	}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[c.namespace]; ok {
		if _, ok := room[c]; ok {
			delete(room, c)
			close(c.send)
		}
	}
}

func (h *Hub) broadcast(namespace string, msg domain.DiscussionMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[namespace] {
		select {
		case c.send <- data:
		default:
			close(c.send)
			delete(h.rooms[namespace], c)
		}
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	for {
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

// handleDiscussionFeed upgrades the connection to a websocket and streams
// the resolved namespace's discussion messages as they're posted.
func (s *Server) handleDiscussionFeed(w http.ResponseWriter, r *http.Request) {
	id, err := s.orch.Identity.Resolve(r.Header)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws: upgrade failed", "error", err)
		return
	}

	client := &Client{
		namespace: id.Namespace,
		conn:      conn,
		send:      make(chan []byte, wsBufferSize),
	}
	s.hub.register(client)

	go client.writePump()
	client.readPump(s.hub)
}
