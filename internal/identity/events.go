package identity

import (
	"context"

	"github.com/google/uuid"
)

type EventType string

const (
	// EventSignedIn attaches a user to one dashboard session.
	EventSignedIn    EventType = "signed_in"
	EventSignedOut   EventType = "signed_out"
	EventDeleted     EventType = "deleted"
	EventDataCleared EventType = "data_cleared"
)

type Event struct {
	Type        EventType `json:"type"`
	UserID      uuid.UUID `json:"userID"`
	SessionID   string    `json:"sessionID,omitempty"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
}

// Bus fans identity events out to whoever owns dashboard sessions.
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Events() <-chan Event
	Close() error
}

type LocalBus struct {
	events chan Event
}

func NewLocalBus(size int) *LocalBus {
	return &LocalBus{events: make(chan Event, size)}
}

func (b *LocalBus) Publish(ctx context.Context, event Event) error {
	select {
	case b.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *LocalBus) Events() <-chan Event {
	return b.events
}

func (b *LocalBus) Close() error {
	close(b.events)
	return nil
}
