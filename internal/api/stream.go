package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/pipeline"
)

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// ProgressNotifier keeps track of active websocket clients and broadcasts
// pipeline run events to them.
type ProgressNotifier struct {
	mu         sync.Mutex
	clients    map[*wsClient]struct{}
	lastStatus *pipeline.Event
}

// NewProgressNotifier constructs a notifier instance.
func NewProgressNotifier() *ProgressNotifier {
	return &ProgressNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection and returns a client handle. New
// clients immediately receive the last run status so late joiners see where
// the run stands.
func (n *ProgressNotifier) Register(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	status := n.lastStatus
	n.mu.Unlock()

	if status != nil {
		_ = client.writeJSON(*status)
	}
	return client
}

// Unregister removes the websocket client and closes the socket.
func (n *ProgressNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends the supplied event to all registered websocket clients.
func (n *ProgressNotifier) Broadcast(event pipeline.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	n.mu.Lock()
	switch event.Type {
	case "start", "answer", "checkpoint", "done":
		snapshot := event
		n.lastStatus = &snapshot
	}

	for client := range n.clients {
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
	n.mu.Unlock()
}

// LastStatus returns a copy of the most recent status event, if any.
func (n *ProgressNotifier) LastStatus() *pipeline.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastStatus == nil {
		return nil
	}
	copy := *n.lastStatus
	return &copy
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}
