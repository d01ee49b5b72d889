package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/melihalgin1/CryptoVault/internal/identity"
)

// Hub owns every open dashboard session of this instance and applies
// identity events to them.
type Hub struct {
	opts    Options
	idleTTL time.Duration
	log     *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Controller

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(opts Options, idleTTL time.Duration) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		opts:     opts,
		idleTTL:  idleTTL,
		log:      opts.Log,
		sessions: make(map[string]*Controller),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Create opens a guest session and starts its price poller.
func (h *Hub) Create() *Controller {
	c := New(uuid.NewString(), h.opts)
	c.Start(h.ctx)

	h.mu.Lock()
	h.sessions[c.ID()] = c
	h.mu.Unlock()

	h.log.Debug("session created", "session", c.ID())
	return c
}

func (h *Hub) Get(id string) (*Controller, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.sessions[id]
	return c, ok
}

func (h *Hub) Close(id string) {
	h.mu.Lock()
	c, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()

	if ok {
		c.Close()
		h.log.Debug("session closed", "session", id)
	}
}

// SessionsOf returns every session the user is attached to.
func (h *Hub) SessionsOf(userID uuid.UUID) []*Controller {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*Controller
	for _, c := range h.sessions {
		if id, ok := c.UserID(); ok && id == userID {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sessions)
}

// Run applies events until ctx is done or events is closed, and expires
// idle sessions every sweepInterval.
func (h *Hub) Run(ctx context.Context, events <-chan identity.Event, sweepInterval time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				h.log.Warn("identity event stream closed")
				return
			}
			h.Handle(ev)
		case now := <-ticker.C:
			h.Sweep(now)
		}
	}
}

// Handle applies one identity event. Account loads run in the background so
// a slow document store never stalls the event loop.
func (h *Hub) Handle(ev identity.Event) {
	switch ev.Type {
	case identity.EventSignedIn:
		c, ok := h.Get(ev.SessionID)
		if !ok {
			return
		}
		ident := Identity{UserID: ev.UserID, Email: ev.Email, DisplayName: ev.DisplayName}
		go func() {
			if err := c.SignIn(h.ctx, ident); err != nil {
				h.log.Warn("sign-in load failed", "session", c.ID(), "error", err)
			}
		}()

	case identity.EventSignedOut, identity.EventDeleted:
		for _, c := range h.SessionsOf(ev.UserID) {
			c.SignOut()
		}

	case identity.EventDataCleared:
		for _, c := range h.SessionsOf(ev.UserID) {
			go func(c *Controller) {
				if err := c.Reload(h.ctx); err != nil {
					h.log.Warn("reload after data clear failed", "session", c.ID(), "error", err)
				}
			}(c)
		}

	default:
		h.log.Warn("unknown identity event", "type", ev.Type)
	}
}

func (h *Hub) Sweep(now time.Time) {
	h.mu.RLock()
	var idle []string
	for id, c := range h.sessions {
		if c.Idle(now, h.idleTTL) {
			idle = append(idle, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range idle {
		h.Close(id)
	}
	if len(idle) > 0 {
		h.log.Info("expired idle sessions", "count", len(idle))
	}
}

// Shutdown closes every session.
func (h *Hub) Shutdown() {
	h.cancel()

	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*Controller)
	h.mu.Unlock()

	for _, c := range sessions {
		c.Close()
	}
}
