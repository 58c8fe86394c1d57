package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager owns every local websocket connection and its room
// membership. Rooms are purely local: cross-process visibility comes from
// the bus, whose events the fan-out re-emits into these rooms.
type ConnectionManager struct {
	rooms  map[string]map[*Connection]bool
	byUser map[string]map[*Connection]bool
	mu     sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan roomMessage

	// handler receives every parsed client message.
	handler func(ctx context.Context, conn *Connection, raw []byte)
}

// Connection represents one websocket connection to a client.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
	LastPing    time.Time

	// userID is set at login/rejoin, guarded by the manager's mutex.
	userID string
}

// ConnectionConfig holds configuration for websocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

type roomMessage struct {
	room    string
	payload []byte
}

// DefaultConnectionConfig returns default websocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a websocket connection manager.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		rooms:  make(map[string]map[*Connection]bool),
		byUser: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan roomMessage, 1000),
	}
}

// SetMessageHandler installs the handler invoked for every client message.
// Must be called before the first upgrade.
func (cm *ConnectionManager) SetMessageHandler(h func(ctx context.Context, conn *Connection, raw []byte)) {
	cm.handler = h
}

// Start processes room broadcasts until ctx is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.deliver(message)
		}
	}
}

// Upgrade upgrades an HTTP request to a websocket connection and starts its
// read/write pumps. The connection joins rooms only after a login message.
func (cm *ConnectionManager) Upgrade(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	go connection.writePump()
	// The request context dies when the upgrade handler returns; message
	// handling outlives it.
	go connection.readPump(context.Background())

	log.Info().
		Str("connection_id", connection.ID).
		Msg("websocket connection established")
	return nil
}

// SetUser binds a connection to a user identity.
func (cm *ConnectionManager) SetUser(conn *Connection, userID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if conn.userID != "" {
		if conns, ok := cm.byUser[conn.userID]; ok {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(cm.byUser, conn.userID)
			}
		}
	}
	conn.userID = userID
	if cm.byUser[userID] == nil {
		cm.byUser[userID] = make(map[*Connection]bool)
	}
	cm.byUser[userID][conn] = true
}

// UserID returns the identity bound to the connection, if any.
func (cm *ConnectionManager) UserID(conn *Connection) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return conn.userID
}

// JoinRoom adds a connection to a room.
func (cm *ConnectionManager) JoinRoom(conn *Connection, room string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.rooms[room] == nil {
		cm.rooms[room] = make(map[*Connection]bool)
	}
	cm.rooms[room][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("room", room).
		Int("members", len(cm.rooms[room])).
		Msg("connection joined room")
}

// JoinUserToRoom adds every local connection of a user to a room. Used by
// the fan-out when a matched event names players this process may own.
func (cm *ConnectionManager) JoinUserToRoom(userID, room string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	conns, ok := cm.byUser[userID]
	if !ok {
		return
	}
	if cm.rooms[room] == nil {
		cm.rooms[room] = make(map[*Connection]bool)
	}
	for conn := range conns {
		cm.rooms[room][conn] = true
	}

	log.Debug().
		Str("user_id", userID).
		Str("room", room).
		Int("connections", len(conns)).
		Msg("user joined room")
}

// EmitToRoom delivers an event to every local member of a room.
func (cm *ConnectionManager) EmitToRoom(room, event string, payload any) {
	data, err := json.Marshal(ServerMessage{Event: event, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to marshal room event")
		return
	}
	select {
	case cm.broadcastCh <- roomMessage{room: room, payload: data}:
	default:
		log.Warn().Str("room", room).Msg("broadcast channel full, dropping message")
	}
}

// SendTo delivers an event to a single connection.
func (cm *ConnectionManager) SendTo(conn *Connection, event string, payload any) {
	data, err := json.Marshal(ServerMessage{Event: event, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to marshal event")
		return
	}
	select {
	case conn.Send <- data:
	default:
		log.Warn().
			Str("connection_id", conn.ID).
			Msg("connection send buffer full, closing connection")
		cm.unregister(conn)
		conn.Conn.Close()
	}
}

// deliver fans a room message out to that room's local members.
func (cm *ConnectionManager) deliver(message roomMessage) {
	cm.mu.RLock()
	members, ok := cm.rooms[message.room]
	if !ok {
		cm.mu.RUnlock()
		return
	}
	targets := make([]*Connection, 0, len(members))
	for conn := range members {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		select {
		case conn.Send <- message.payload:
		default:
			log.Warn().
				Str("connection_id", conn.ID).
				Msg("connection send buffer full, closing connection")
			cm.unregister(conn)
			conn.Conn.Close()
		}
	}
}

// unregister removes a connection from every room and the user index.
// The user's stored records survive so they can rejoin later.
func (cm *ConnectionManager) unregister(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for room, members := range cm.rooms {
		if members[conn] {
			delete(members, conn)
			if len(members) == 0 {
				delete(cm.rooms, room)
			}
		}
	}
	if conn.userID != "" {
		if conns, ok := cm.byUser[conn.userID]; ok {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(cm.byUser, conn.userID)
			}
		}
	}
}

// Stats returns counts of active connections and rooms.
func (cm *ConnectionManager) Stats() (connections, rooms int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	seen := make(map[*Connection]bool)
	for _, members := range cm.rooms {
		for conn := range members {
			seen[conn] = true
		}
	}
	for _, conns := range cm.byUser {
		for conn := range conns {
			seen[conn] = true
		}
	}
	return len(seen), len(cm.rooms)
}

// writePump sends outbound messages and pings on one connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregister(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message")
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
			c.LastPing = time.Now()
		}
	}
}

// readPump reads inbound messages on one connection and hands them to the
// message handler.
func (c *Connection) readPump(ctx context.Context) {
	defer func() {
		c.Manager.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected websocket close")
			}
			break
		}

		if c.Manager.handler != nil {
			c.Manager.handler(ctx, c, message)
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
