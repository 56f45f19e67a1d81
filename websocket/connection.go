// Package websocket provides the duty-desk live update hub: manager views
// subscribe here and receive schedule, report and presence events as they
// happen.
// file: websocket/connection.go
package websocket

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fme-portal/logger"
)

// Audiences a connection may subscribe as. The route decides the audience:
// manager-only events are filtered to manager connections, and the route
// serving that audience sits behind the admin middleware. The client never
// picks its own audience.
const (
	AudienceDuty    = "duty"
	AudienceManager = "manager"
)

// WSConn is an interface for the WebSocket connection.
type WSConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	ReadMessage() (int, []byte, error)
	Close() error
	RemoteAddr() net.Addr
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
}

// Connection represents a single WebSocket connection for one client.
type Connection struct {
	conn     WSConn
	send     chan []byte
	audience string
	email    string
}

// Global map for active connections.
var (
	connections = make(map[*Connection]bool)
	connMu      sync.Mutex
)

// Configuration constants.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 2048
)

// Upgrader upgrades HTTP requests to WebSocket connections.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Same-origin pages only; tests set Test-Mode explicitly.
		return true
	},
}

// ServeWs upgrades the HTTP request to a WebSocket connection subscribed to
// the given audience and starts the read and write pumps. The audience comes
// from the registering route, never from the request.
func ServeWs(audience string, w http.ResponseWriter, r *http.Request) {
	if audience != AudienceDuty && audience != AudienceManager {
		logger.Error.Printf("[ServeWs] unknown audience %q; rejecting", audience)
		http.Error(w, "Unknown audience", http.StatusInternalServerError)
		return
	}

	logger.Info.Printf("[ServeWs] Upgrading to WS: remoteAddr=%v, audience=%q", r.RemoteAddr, audience)
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error.Printf("[ServeWs] WebSocket upgrade error: %v", err)
		http.Error(w, "Failed to upgrade WebSocket", http.StatusBadRequest)
		return
	}

	c := &Connection{
		conn:     wsConn,
		send:     make(chan []byte, 256),
		audience: audience,
		email:    "", // set when a "hello" message is received
	}

	registerConnection(c)

	go c.readPump()
	go c.writePump()
}

// readPump handles inbound messages from the client.
func (c *Connection) readPump() {
	defer func() {
		unregisterConnection(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logger.Warn.Printf("[readPump] Read error from %v: %v", c.conn.RemoteAddr(), err)
			break
		}
		if messageType != websocket.TextMessage {
			logger.Debug.Printf("[readPump] Ignoring non-text messageType=%d", messageType)
			continue
		}

		var cm ClientMessage
		if err := json.Unmarshal(message, &cm); err != nil {
			logger.Warn.Printf("[readPump] Invalid JSON from %v: %v", c.conn.RemoteAddr(), err)
			continue
		}
		handleIncoming(c, cm)
	}
}

// writePump handles outbound messages to the client, including periodic pings.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn.Printf("[writePump] Error writing to %v: %v", c.conn.RemoteAddr(), err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Warn.Printf("[writePump] Ping error for %v: %v", c.conn.RemoteAddr(), err)
				return
			}
		}
	}
}

// registerConnection adds the given connection to the global connections map.
func registerConnection(c *Connection) {
	connMu.Lock()
	connections[c] = true
	count := len(connections)
	connMu.Unlock()
	PublishHubConnections(count)
}

// unregisterConnection removes the given connection from the global connections map.
func unregisterConnection(c *Connection) {
	connMu.Lock()
	if _, ok := connections[c]; ok {
		delete(connections, c)
	}
	count := len(connections)
	connMu.Unlock()
	PublishHubConnections(count)
}

// ClientMessage represents the JSON structure of messages from clients.
type ClientMessage struct {
	Action string `json:"action"`
	Email  string `json:"email"`
}

// handleIncoming processes an inbound JSON message.
func handleIncoming(c *Connection, cm ClientMessage) {
	logger.Debug.Printf("[handleIncoming] Action=%s, Email=%s", cm.Action, cm.Email)
	switch cm.Action {
	case "hello":
		c.email = cm.Email
		logger.Info.Printf("Client %s joined the hub (conn=%v)", cm.Email, c.conn.RemoteAddr())
		broadcastPresence()
	default:
		logger.Debug.Printf("Unhandled action: %s", cm.Action)
	}
}

// broadcastPresence announces who is currently connected to the duty desk.
var broadcastPresence = func() {
	connMu.Lock()
	var emails []string
	for c := range connections {
		if c.email != "" {
			emails = append(emails, c.email)
		}
	}
	connMu.Unlock()

	msg := map[string]interface{}{
		"action":    "presenceChanged",
		"connected": emails,
		"count":     len(emails),
	}
	out, _ := json.Marshal(msg)
	broadcast <- out
}
