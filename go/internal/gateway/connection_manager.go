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

// ConnectionManager tracks WebSocket clients per tournament and fans out
// change notices to them.
type ConnectionManager struct {
	tournamentConnections map[uuid.UUID]map[*Connection]bool
	mu                    sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan BroadcastMessage
}

// Connection is one board or judge console.
type Connection struct {
	ID           string
	TournamentID uuid.UUID
	Position     int // 0 for the display board
	Conn         *websocket.Conn
	Send         chan []byte
	Manager      *ConnectionManager

	ConnectedAt time.Time
}

type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

type BroadcastMessage struct {
	TournamentID uuid.UUID
	Notice       *Notice
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		tournamentConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start processes broadcasts until ctx is done.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request and registers the client.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, tournamentID uuid.UUID, position int) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:           uuid.New().String(),
		TournamentID: tournamentID,
		Position:     position,
		Conn:         conn,
		Send:         make(chan []byte, 256),
		Manager:      cm,
		ConnectedAt:  time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("tournament_id", tournamentID.String()).
		Int("position", position).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.tournamentConnections[conn.TournamentID] == nil {
		cm.tournamentConnections[conn.TournamentID] = make(map[*Connection]bool)
	}
	cm.tournamentConnections[conn.TournamentID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("tournament_id", conn.TournamentID.String()).
		Int("total_connections", len(cm.tournamentConnections[conn.TournamentID])).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, exists := cm.tournamentConnections[conn.TournamentID]
	if !exists {
		return
	}
	if _, exists := connections[conn]; !exists {
		return
	}

	delete(connections, conn)
	close(conn.Send)
	if len(connections) == 0 {
		delete(cm.tournamentConnections, conn.TournamentID)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("tournament_id", conn.TournamentID.String()).
		Msg("connection unregistered")
}

// BroadcastToTournament queues a notice for every client of the tournament.
// Notices are dropped when the queue is full; clients still poll.
func (cm *ConnectionManager) BroadcastToTournament(tournamentID uuid.UUID, notice *Notice) {
	select {
	case cm.broadcastCh <- BroadcastMessage{TournamentID: tournamentID, Notice: notice}:
	default:
		log.Warn().Str("tournament_id", tournamentID.String()).Msg("broadcast channel full, dropping notice")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	data, err := json.Marshal(message.Notice)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal notice for broadcast")
		return
	}

	// Sends happen under the read lock: unregisterConnection closes Send
	// under the write lock, so no channel can be closed mid-send.
	cm.mu.RLock()
	var sent int
	var slow []*Connection
	for conn := range cm.tournamentConnections[message.TournamentID] {
		if !conn.wants(message.Notice) {
			continue
		}
		select {
		case conn.Send <- data:
			sent++
		default:
			slow = append(slow, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}

	if sent > 0 {
		log.Debug().
			Str("event_type", string(message.Notice.Type)).
			Str("tournament_id", message.TournamentID.String()).
			Int("connections", sent).
			Msg("notice broadcasted")
	}
}

// wants reports whether the client cares about the notice. The board sees
// everything; a judge console only its own competitor and clock changes.
func (c *Connection) wants(n *Notice) bool {
	return c.Position == 0 || n.Position == 0 || c.Position == n.Position
}

// ConnectionStats summarizes active clients.
type ConnectionStats struct {
	TotalConnections      int            `json:"total_connections"`
	ActiveTournaments     int            `json:"active_tournaments"`
	TournamentConnections map[string]int `json:"tournament_connections"`
}

func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveTournaments:     len(cm.tournamentConnections),
		TournamentConnections: make(map[string]int, len(cm.tournamentConnections)),
	}
	for id, connections := range cm.tournamentConnections {
		stats.TotalConnections += len(connections)
		stats.TournamentConnections[id.String()] = len(connections)
	}
	return stats
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
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
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump only drains control frames; clients never send commands.
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
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
