package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 32 * 1024
	sendBuffer     = 64
	publishBuffer  = 256
)

// ClientMessage represents a message from a websocket client
type ClientMessage struct {
	Type   string `json:"type"`
	TaskID string `json:"taskId,omitempty"`
}

// ServerMessage represents a message to a websocket client
type ServerMessage struct {
	Type      string      `json:"type"`
	TaskID    string      `json:"taskId,omitempty"`
	Content   interface{} `json:"content,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// progressClient is one connected websocket
type progressClient struct {
	id    string
	conn  *websocket.Conn
	send  chan ServerMessage
	hub   *ProgressHub
	tasks map[string]struct{}
}

// ProgressHub fans analysis events out to websocket subscribers.
// Publishing never blocks: when the hub or a client falls behind, events are dropped.
type ProgressHub struct {
	clients    map[string]*progressClient
	tasks      map[string]map[string]struct{} // taskID -> clientIDs
	unregister chan *progressClient
	broadcast  chan ServerMessage

	upgrader websocket.Upgrader
	mu       sync.RWMutex

	shutdown     chan struct{}
	shutdownOnce sync.Once
	dropped      int
}

// NewProgressHub creates a hub accepting connections from allowedOrigins ("*" allows all)
func NewProgressHub(allowedOrigins []string) *ProgressHub {
	h := &ProgressHub{
		clients:    make(map[string]*progressClient),
		tasks:      make(map[string]map[string]struct{}),
		unregister: make(chan *progressClient),
		broadcast:  make(chan ServerMessage, publishBuffer),
		shutdown:   make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		log.Warn().Str("origin", origin).Msg("rejected websocket connection")
		return false
	}
}

// Run processes registrations and events until Shutdown is called
func (h *ProgressHub) Run() {
	for {
		select {
		case <-h.shutdown:
			h.mu.Lock()
			for id, c := range h.clients {
				close(c.send)
				delete(h.clients, id)
			}
			h.tasks = make(map[string]map[string]struct{})
			h.mu.Unlock()
			return

		case c := <-h.unregister:
			h.remove(c)

		case msg := <-h.broadcast:
			h.mu.RLock()
			var targets []*progressClient
			if msg.TaskID == "" {
				for _, c := range h.clients {
					targets = append(targets, c)
				}
			} else {
				for id := range h.tasks[msg.TaskID] {
					if c, ok := h.clients[id]; ok {
						targets = append(targets, c)
					}
				}
			}
			h.mu.RUnlock()

			for _, c := range targets {
				if !h.deliver(c, msg) {
					// slow consumer
					h.remove(c)
					c.conn.Close()
				}
			}
		}
	}
}

func (h *ProgressHub) add(c *progressClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.shutdown:
		return false
	default:
	}
	h.clients[c.id] = c
	return true
}

func (h *ProgressHub) remove(c *progressClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)

	for taskID := range c.tasks {
		if subs, ok := h.tasks[taskID]; ok {
			delete(subs, c.id)
			if len(subs) == 0 {
				delete(h.tasks, taskID)
			}
		}
	}
}

// Subscribe subscribes a client to updates for a specific task
func (h *ProgressHub) Subscribe(clientID, taskID string) {
	if taskID == "" || clientID == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	if _, exists := h.tasks[taskID]; !exists {
		h.tasks[taskID] = make(map[string]struct{})
	}
	h.tasks[taskID][clientID] = struct{}{}
	c.tasks[taskID] = struct{}{}
}

// Unsubscribe unsubscribes a client from updates for a specific task
func (h *ProgressHub) Unsubscribe(clientID, taskID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.tasks[taskID]; ok {
		delete(subs, clientID)
		if len(subs) == 0 {
			delete(h.tasks, taskID)
		}
	}
	if c, ok := h.clients[clientID]; ok {
		delete(c.tasks, taskID)
	}
}

// SendTaskUpdate publishes an event for taskID without blocking the caller
func (h *ProgressHub) SendTaskUpdate(taskID string, updateType string, content interface{}) {
	if taskID == "" || updateType == "" {
		return
	}
	h.publish(ServerMessage{Type: updateType, TaskID: taskID, Content: content, Timestamp: nowMillis()})
}

// Broadcast sends a message to every connected client
func (h *ProgressHub) Broadcast(messageType string, content interface{}) {
	if messageType == "" {
		return
	}
	h.publish(ServerMessage{Type: messageType, Content: content, Timestamp: nowMillis()})
}

func (h *ProgressHub) publish(msg ServerMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
		log.Debug().Str("type", msg.Type).Str("task_id", msg.TaskID).Msg("progress event dropped")
	}
}

// Shutdown stops the run loop and closes every client
func (h *ProgressHub) Shutdown() {
	h.shutdownOnce.Do(func() { close(h.shutdown) })
}

// GetStats returns current hub statistics
func (h *ProgressHub) GetStats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"activeConnections": len(h.clients),
		"taskCount":         len(h.tasks),
		"droppedEvents":     h.dropped,
	}
}

// ServeWs handles GET /ws
func (h *ProgressHub) ServeWs(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.shutdown:
		sendJSONError(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &progressClient{
		id:    uuid.NewString(),
		conn:  conn,
		send:  make(chan ServerMessage, sendBuffer),
		hub:   h,
		tasks: make(map[string]struct{}),
	}

	if !h.add(c) {
		conn.Close()
		return
	}

	// an analysis id in the query subscribes before the welcome message goes out
	if taskID := r.URL.Query().Get("taskId"); taskID != "" {
		h.Subscribe(c.id, taskID)
	}
	h.deliver(c, ServerMessage{
		Type:      "connected",
		Content:   map[string]string{"clientId": c.id},
		Timestamp: nowMillis(),
	})

	go c.writePump()
	go c.readPump()
}

// deliver queues msg for c without blocking. send is only closed under h.mu,
// so holding the read lock keeps it open for the duration of the send.
func (h *ProgressHub) deliver(c *progressClient, msg ServerMessage) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.clients[c.id] != c {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// readPump pumps messages from the websocket to the hub
func (c *progressClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.shutdown:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn().Err(err).Str("client_id", c.id).Msg("websocket read failed")
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.hub.deliver(c, ServerMessage{Type: "error", Content: map[string]string{"error": "Invalid message format"}, Timestamp: nowMillis()})
			continue
		}

		switch msg.Type {
		case "subscribe":
			c.hub.Subscribe(c.id, msg.TaskID)
			c.hub.deliver(c, ServerMessage{Type: "subscribed", TaskID: msg.TaskID, Timestamp: nowMillis()})
		case "unsubscribe":
			c.hub.Unsubscribe(c.id, msg.TaskID)
			c.hub.deliver(c, ServerMessage{Type: "unsubscribed", TaskID: msg.TaskID, Timestamp: nowMillis()})
		case "ping":
			c.hub.deliver(c, ServerMessage{Type: "pong", Timestamp: nowMillis()})
		default:
			c.hub.deliver(c, ServerMessage{Type: "error", Content: map[string]string{"error": "Unknown message type"}, Timestamp: nowMillis()})
		}
	}
}

// writePump pumps messages from the hub to the websocket
func (c *progressClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
