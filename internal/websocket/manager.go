// Package websocket pushes rendered dashboard views to connected browsers.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/melihalgin1/CryptoVault/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

type Client struct {
	Manager   *Manager
	Conn      *websocket.Conn
	SessionID string
	Send      chan []byte

	mu          sync.Mutex
	closed      bool
	unsubscribe func()
}

func NewClient(manager *Manager, conn *websocket.Conn, sessionID string) *Client {
	return &Client{
		Manager:   manager,
		Conn:      conn,
		SessionID: sessionID,
		Send:      make(chan []byte, sendBuffer),
	}
}

// Attach ties the client to a view subscription that is released when the
// client unregisters.
func (c *Client) Attach(unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.unsubscribe = unsubscribe
}

// Push queues view for the writer. Views are dropped when the client is
// too slow; the next change sends a complete view anyway.
func (c *Client) Push(view models.DashboardView) {
	data, err := json.Marshal(view)
	if err != nil {
		c.Manager.log.Error("failed to marshal dashboard view", "error", err, "session", c.SessionID)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
		c.Manager.log.Warn("client send channel is full, dropping view", "session", c.SessionID)
	}
}

func (c *Client) close() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

type Manager struct {
	clients    map[*Client]struct{}
	mu         sync.RWMutex
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	log        *slog.Logger
}

func NewManager(log *slog.Logger) *Manager {
	return &Manager{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			m.log.Info("websocket manager stopping...")
			m.closeAll()
			return
		case client := <-m.register:
			m.registerClient(client)
		case client := <-m.unregister:
			m.unregisterClient(client)
		}
	}
}

// Register hands client to the run loop; after Run returns the client is
// closed right away.
func (m *Manager) Register(client *Client) {
	select {
	case m.register <- client:
	case <-m.done:
		client.close()
	}
}

func (m *Manager) Unregister(client *Client) {
	select {
	case m.unregister <- client:
	case <-m.done:
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.clients)
}

func (m *Manager) registerClient(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clients[client] = struct{}{}
	m.log.Info("new client registered", "session", client.SessionID)
}

func (m *Manager) unregisterClient(client *Client) {
	m.mu.Lock()
	_, ok := m.clients[client]
	delete(m.clients, client)
	m.mu.Unlock()

	if ok {
		client.close()
		m.log.Info("client unregistered", "session", client.SessionID)
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[*Client]struct{})
	m.mu.Unlock()

	for client := range clients {
		client.close()
	}
}

func (c *Client) Writer() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Manager.log.Warn("failed to write message to client", "session", c.SessionID)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Reader only services control frames; intents arrive over HTTP.
func (c *Client) Reader() {
	defer func() {
		c.Manager.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Manager.log.Warn("unexpected close error", "session", c.SessionID, "error", err)
			}
			break
		}
	}
}
