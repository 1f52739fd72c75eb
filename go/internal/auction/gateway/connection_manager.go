package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/auctionroom/go/internal/auction/coordinator"
	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/rs/zerolog/log"
)

// CommandSink accepts decoded client commands
type CommandSink interface {
	Submit(ctx context.Context, cmd coordinator.Command) error
}

// ConnectionManager owns the room's WebSocket connections. It feeds client frames
// to the coordinator and delivers the coordinator's events back out.
type ConnectionManager struct {
	connections map[string]*Connection
	mu          sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	config   ConnectionConfig
	commands CommandSink

	// Event broadcasting
	broadcastCh chan *events.Event
}

// Connection represents a WebSocket connection to a client. Its ID doubles as the
// participant id once the client joins.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Manager *ConnectionManager

	ConnectedAt time.Time

	// set once login_success is delivered; room-wide events wait for it
	joined atomic.Bool

	sendMu sync.Mutex
	send   chan []byte
	closed bool
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	SubmitTimeout   time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	BroadcastBuffer int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		SubmitTimeout:   5 * time.Second,
		MaxMessageSize:  1024, // 1KB max message size
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		BroadcastBuffer: 1000,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// AllowOrigins builds a CheckOrigin func for a fixed origin list; "*" allows all
func AllowOrigins(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, commands CommandSink) *ConnectionManager {
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = 256
	}
	if config.BroadcastBuffer <= 0 {
		config.BroadcastBuffer = 1000
	}
	if config.SubmitTimeout <= 0 {
		config.SubmitTimeout = 5 * time.Second
	}

	return &ConnectionManager{
		connections: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		commands:    commands,
		broadcastCh: make(chan *events.Event, config.BroadcastBuffer),
	}
}

// Start delivers queued events until ctx is cancelled
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case event := <-cm.broadcastCh:
			cm.handleBroadcast(event)
		}
	}
}

// Emit queues an event for delivery. It never blocks the coordinator.
func (cm *ConnectionManager) Emit(event *events.Event) {
	select {
	case cm.broadcastCh <- event:
	default:
		log.Warn().
			Str("event_type", string(event.Type)).
			Uint64("seq", event.Seq).
			Msg("broadcast channel full, dropping message")
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Manager:     cm,
		ConnectedAt: time.Now(),
		send:        make(chan []byte, cm.config.SendBufferSize),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")

	return connection, nil
}

// registerConnection adds a connection to the manager
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[conn.ID] = conn

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

// unregisterConnection removes a connection and tells the coordinator it left.
// Safe to call more than once.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	_, exists := cm.connections[conn.ID]
	if exists {
		delete(cm.connections, conn.ID)
	}
	cm.mu.Unlock()

	if !exists {
		return
	}
	conn.closeSend()

	log.Info().
		Str("connection_id", conn.ID).
		Dur("connected_for", time.Since(conn.ConnectedAt)).
		Msg("connection unregistered")

	if cm.commands == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cm.config.SubmitTimeout)
	defer cancel()
	if err := cm.commands.Submit(ctx, coordinator.Disconnect{From: conn.ID}); err != nil && !errors.Is(err, coordinator.ErrStopped) {
		log.Error().Err(err).Str("connection_id", conn.ID).Msg("failed to submit disconnect")
	}
}

// handleBroadcast delivers one event to its audience
func (cm *ConnectionManager) handleBroadcast(event *events.Event) {
	cm.mu.RLock()
	var targets []*Connection
	if event.Private() {
		if conn, ok := cm.connections[event.To]; ok {
			targets = append(targets, conn)
		}
	} else {
		targets = make([]*Connection, 0, len(cm.connections))
		for _, conn := range cm.connections {
			// A reset reloads every socket, joined or not
			if conn.joined.Load() || event.Type == events.EventTypeReload {
				targets = append(targets, conn)
			}
		}
	}
	cm.mu.RUnlock()

	if event.Type == events.EventTypeLoginSuccess {
		for _, conn := range targets {
			conn.joined.Store(true)
		}
	}

	if len(targets) == 0 {
		return
	}

	// Marshal the event once
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		if !conn.enqueue(data) {
			// Connection is slow/dead, close it
			log.Warn().
				Str("connection_id", conn.ID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			continue
		}

		// Kicked clients and a reset room are disconnected once the notice is flushed
		if event.Type == events.EventTypeKicked || event.Type == events.EventTypeReload {
			cm.unregisterConnection(conn)
		}
	}

	log.Debug().
		Str("event_type", string(event.Type)).
		Uint64("seq", event.Seq).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.connections))
	for _, conn := range cm.connections {
		conns = append(conns, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range conns {
		cm.unregisterConnection(conn)
	}
}

// ConnectionCount returns the number of open connections
func (cm *ConnectionManager) ConnectionCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// ConnectionStats summarizes open connections
type ConnectionStats struct {
	TotalConnections  int `json:"total_connections"`
	JoinedConnections int `json:"joined_connections"`
	PendingEvents     int `json:"pending_events"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	total := len(cm.connections)
	joined := 0
	for _, conn := range cm.connections {
		if conn.joined.Load() {
			joined++
		}
	}
	cm.mu.RUnlock()

	return ConnectionStats{
		TotalConnections:  total,
		JoinedConnections: joined,
		PendingEvents:     len(cm.broadcastCh),
	}
}

// enqueue hands a frame to the write pump; false means the buffer is full
func (c *Connection) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend stops the write pump after it flushes what is already queued
func (c *Connection) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage decodes a client frame and forwards it to the coordinator
func (c *Connection) handleClientMessage(message []byte) {
	cmd, err := DecodeCommand(c.ID, message)
	if err != nil {
		log.Debug().
			Err(err).
			Str("connection_id", c.ID).
			Msg("ignoring client message")
		return
	}

	if c.Manager.commands == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.Manager.config.SubmitTimeout)
	defer cancel()
	if err := c.Manager.commands.Submit(ctx, cmd); err != nil {
		log.Error().
			Err(err).
			Str("connection_id", c.ID).
			Str("command", cmd.Name()).
			Msg("failed to submit command")
	}
}
