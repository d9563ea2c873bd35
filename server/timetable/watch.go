package servertimetable

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Pjt727/timetable/data/timetable"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	watchSendBuffer = 16
	watchWriteWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // cors is handled by the router
	},
}

// placementEvent is what watchers receive for every new class
type placementEvent struct {
	Type string `json:"type"`
	timetable.Placement
}

// WatchHub fans placements out to every open websocket. A watcher that cannot
// keep up misses events rather than slowing down writes.
type WatchHub struct {
	logger *slog.Logger

	mu          sync.Mutex
	connections map[uuid.UUID]*watchConnection
}

type watchConnection struct {
	id        uuid.UUID
	conn      *websocket.Conn
	send      chan []byte
	hub       *WatchHub
	closeOnce sync.Once
}

func NewWatchHub(logger *slog.Logger) *WatchHub {
	return &WatchHub{
		logger:      logger,
		connections: map[uuid.UUID]*watchConnection{},
	}
}

// Watchers is the number of open connections
func (hub *WatchHub) Watchers() int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.connections)
}

func (hub *WatchHub) PublishPlacement(p timetable.Placement) {
	message, err := json.Marshal(placementEvent{Type: "class_added", Placement: p})
	if err != nil {
		hub.logger.Error("Could not marshal placement", "err", err)
		return
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	for id, c := range hub.connections {
		select {
		case c.send <- message:
		default:
			hub.logger.Warn("Dropped event for slow watcher", "watcher", id)
		}
	}
}

// Close drops every watcher
func (hub *WatchHub) Close() {
	hub.mu.Lock()
	connections := make([]*watchConnection, 0, len(hub.connections))
	for _, c := range hub.connections {
		connections = append(connections, c)
	}
	hub.mu.Unlock()

	for _, c := range connections {
		c.disconnect()
	}
}

func (hub *WatchHub) serveWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Info("Could not upgrade", "err", err)
		return
	}

	c := &watchConnection{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, watchSendBuffer),
		hub:  hub,
	}

	hub.mu.Lock()
	hub.connections[c.id] = c
	hub.mu.Unlock()
	hub.logger.Info("Watcher connected", "watcher", c.id)

	go c.writePump()
	go c.readPump()
}

// readPump only exists to notice the client going away
func (c *watchConnection) readPump() {
	defer c.disconnect()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
			) {
				c.hub.logger.Info("Watcher closed unexpectedly", "watcher", c.id, "err", err)
			}
			return
		}
	}
}

func (c *watchConnection) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.hub.logger.Info("Could not write to watcher", "watcher", c.id, "err", err)
			c.disconnect()
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// disconnect is safe to call from both pumps
func (c *watchConnection) disconnect() {
	c.closeOnce.Do(func() {
		c.hub.mu.Lock()
		delete(c.hub.connections, c.id)
		close(c.send)
		c.hub.mu.Unlock()
		c.hub.logger.Info("Watcher disconnected", "watcher", c.id)
	})
}
