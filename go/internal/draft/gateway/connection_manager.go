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
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/castaway/go/internal/draft/pick"
	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/rs/zerolog/log"
)

// BoardSource is the part of the document store the gateway reads.
type BoardSource interface {
	LoadLeague(ctx context.Context, leagueID uuid.UUID) (*models.League, error)
	LoadDraft(ctx context.Context, leagueID uuid.UUID) (*models.Draft, error)
	SubscribeDraft(ctx context.Context, leagueID uuid.UUID, onChange func(*models.Draft)) (func(), error)
}

// ConnectionManager manages WebSocket connections for league drafts
type ConnectionManager struct {
	source BoardSource
	clock  clockwork.Clock

	// Connection pools organized by league ID
	leagueConnections map[uuid.UUID]map[*Connection]bool
	feeds             map[uuid.UUID]*leagueFeed
	mu                sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	changes chan *models.Draft
}

// leagueFeed is the store subscription shared by a league's connections.
type leagueFeed struct {
	unsubscribe func()
	last        *models.Draft
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID       string
	UserID   string
	LeagueID uuid.UUID
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	TickInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		TickInterval:    500 * time.Millisecond,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// origins are filtered by the CORS layer in front of the gateway
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(source BoardSource, clock clockwork.Clock, config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		source:            source,
		clock:             clock,
		leagueConnections: make(map[uuid.UUID]map[*Connection]bool),
		feeds:             make(map[uuid.UUID]*leagueFeed),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:  config,
		changes: make(chan *models.Draft, 1000),
	}
}

// Start broadcasts draft changes and timer ticks until ctx is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	ticker := cm.clock.NewTicker(cm.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeFeeds()
			return
		case d := <-cm.changes:
			cm.handleChange(ctx, d)
		case <-ticker.Chan():
			cm.tick()
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and sends the
// current board.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID string, leagueID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		LeagueID:    leagueID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: cm.clock.Now(),
	}

	if err := cm.registerConnection(r.Context(), connection); err != nil {
		conn.Close()
		return err
	}

	go connection.writePump()
	go connection.readPump()

	if err := cm.sendSnapshot(r.Context(), connection); err != nil {
		log.Warn().Err(err).Str("league_id", leagueID.String()).Msg("failed to send initial snapshot")
	}

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID).
		Str("league_id", leagueID.String()).
		Msg("WebSocket connection established")
	return nil
}

// registerConnection adds a connection, subscribing to the league's draft when
// it is the first.
func (cm *ConnectionManager) registerConnection(ctx context.Context, conn *Connection) error {
	if cm.addToFeed(conn, nil) {
		return nil
	}

	// Subscribing may reach the database, so it runs without the lock.
	unsubscribe, err := cm.source.SubscribeDraft(ctx, conn.LeagueID, cm.enqueueChange)
	if err != nil {
		return fmt.Errorf("failed to subscribe to draft: %w", err)
	}
	if cm.addToFeed(conn, unsubscribe) {
		// another connection opened the feed first
		unsubscribe()
	}
	return nil
}

// addToFeed registers conn when its league already has a feed and reports whether
// it did. Otherwise a non-nil unsubscribe opens the feed with conn as its first
// connection.
func (cm *ConnectionManager) addToFeed(conn *Connection, unsubscribe func()) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, exists := cm.leagueConnections[conn.LeagueID]
	if !exists {
		if unsubscribe == nil {
			return false
		}
		connections = make(map[*Connection]bool)
		cm.leagueConnections[conn.LeagueID] = connections
		cm.feeds[conn.LeagueID] = &leagueFeed{unsubscribe: unsubscribe}
	}
	connections[conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("league_id", conn.LeagueID.String()).
		Int("total_connections", len(connections)).
		Msg("connection registered")
	return exists
}

// unregisterConnection removes a connection, unsubscribing when it was the last.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	connections, exists := cm.leagueConnections[conn.LeagueID]
	if !exists || !connections[conn] {
		cm.mu.Unlock()
		return
	}
	delete(connections, conn)
	close(conn.Send)

	var feed *leagueFeed
	if len(connections) == 0 {
		delete(cm.leagueConnections, conn.LeagueID)
		feed = cm.feeds[conn.LeagueID]
		delete(cm.feeds, conn.LeagueID)
	}
	cm.mu.Unlock()

	if feed != nil {
		feed.unsubscribe()
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Str("league_id", conn.LeagueID.String()).
		Msg("connection unregistered")
}

func (cm *ConnectionManager) closeFeeds() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	for leagueID, feed := range cm.feeds {
		feed.unsubscribe()
		delete(cm.feeds, leagueID)
	}
}

// enqueueChange runs on the store's delivery path and must not block.
func (cm *ConnectionManager) enqueueChange(d *models.Draft) {
	select {
	case cm.changes <- d:
	default:
		log.Warn().Str("league_id", d.LeagueID.String()).Msg("change channel full, dropping draft update")
	}
}

// handleChange broadcasts the board for a committed draft version.
func (cm *ConnectionManager) handleChange(ctx context.Context, d *models.Draft) {
	cm.mu.Lock()
	feed := cm.feeds[d.LeagueID]
	if feed == nil {
		cm.mu.Unlock()
		return
	}
	// versions can arrive out of order after a listener resync
	if feed.last != nil && feed.last.Version > d.Version {
		cm.mu.Unlock()
		return
	}
	feed.last = d
	cm.mu.Unlock()

	event, err := cm.snapshotEvent(ctx, d)
	if err != nil {
		log.Error().Err(err).Str("league_id", d.LeagueID.String()).Msg("failed to build draft snapshot")
		return
	}
	cm.BroadcastToLeague(d.LeagueID, event)
}

// tick broadcasts the countdown for every watched draft on the clock.
func (cm *ConnectionManager) tick() {
	now := cm.clock.Now()

	cm.mu.RLock()
	var ticks []*DraftEvent
	for leagueID, feed := range cm.feeds {
		remaining, ok := pick.TimeRemaining(feed.last, now)
		if !ok {
			continue
		}
		turn := pick.ResolveTurn(feed.last.Order, feed.last.CurrentPickIndex)
		event, err := newEvent(EventTypeTimerTick, leagueID.String(), now, TimerTickPayload{
			PickIndex:     turn.PickIndex,
			ParticipantID: turn.ParticipantID,
			Remaining:     remaining,
			Deadline:      feed.last.Deadline(),
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to build timer tick")
			continue
		}
		ticks = append(ticks, event)
	}
	cm.mu.RUnlock()

	for _, event := range ticks {
		cm.BroadcastToLeague(uuid.MustParse(event.LeagueID), event)
	}
}

// sendSnapshot sends the current board to one connection and seeds the league's
// cached draft for timer ticks.
func (cm *ConnectionManager) sendSnapshot(ctx context.Context, conn *Connection) error {
	d, err := cm.source.LoadDraft(ctx, conn.LeagueID)
	if err != nil {
		return err
	}
	if d == nil {
		return nil
	}

	cm.mu.Lock()
	if feed := cm.feeds[conn.LeagueID]; feed != nil && (feed.last == nil || feed.last.Version < d.Version) {
		feed.last = d
	}
	cm.mu.Unlock()

	event, err := cm.snapshotEvent(ctx, d)
	if err != nil {
		return err
	}
	cm.deliver([]*Connection{conn}, event)
	return nil
}

func (cm *ConnectionManager) snapshotEvent(ctx context.Context, d *models.Draft) (*DraftEvent, error) {
	league, err := cm.source.LoadLeague(ctx, d.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load league: %w", err)
	}
	now := cm.clock.Now()
	return newEvent(EventTypeDraftSnapshot, d.LeagueID.String(), now, pick.NewBoard(league, d, now))
}

// BroadcastToLeague sends an event to all connections watching a league's draft
func (cm *ConnectionManager) BroadcastToLeague(leagueID uuid.UUID, event *DraftEvent) {
	cm.mu.RLock()
	targets := make([]*Connection, 0, len(cm.leagueConnections[leagueID]))
	for conn := range cm.leagueConnections[leagueID] {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	cm.deliver(targets, event)

	log.Debug().
		Str("event_type", string(event.Type)).
		Str("league_id", leagueID.String()).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// deliver queues an event on each connection. Connections whose buffer is full
// are dropped.
func (cm *ConnectionManager) deliver(targets []*Connection, event *DraftEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	var slow []*Connection
	cm.mu.RLock()
	for _, conn := range targets {
		// registration is checked under the lock so Send is never closed here
		if !cm.leagueConnections[conn.LeagueID][conn] {
			continue
		}
		select {
		case conn.Send <- data:
		default:
			slow = append(slow, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("user_id", conn.UserID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}
}

// ConnectionStats summarizes active connections.
type ConnectionStats struct {
	TotalConnections  int            `json:"total_connections"`
	ActiveLeagues     int            `json:"active_leagues"`
	LeagueConnections map[string]int `json:"league_connections"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveLeagues:     len(cm.leagueConnections),
		LeagueConnections: make(map[string]int, len(cm.leagueConnections)),
	}
	for leagueID, connections := range cm.leagueConnections {
		stats.TotalConnections += len(connections)
		stats.LeagueConnections[leagueID.String()] = len(connections)
	}
	return stats
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

// readPump drains client frames so control messages are processed. Clients
// send picks through the RPC API, not the socket.
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
			return
		}

		log.Debug().
			Str("connection_id", c.ID).
			Str("user_id", c.UserID).
			Int("bytes", len(message)).
			Msg("ignoring client message")
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
