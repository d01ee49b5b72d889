package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/melihalgin1/CryptoVault/internal/coin"
	"github.com/melihalgin1/CryptoVault/internal/identity"
	"github.com/melihalgin1/CryptoVault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubRoutesIdentityEvents(t *testing.T) {
	profiles := newFakeProfiles()
	hub := NewHub(testOptions(&fakeFetcher{}, profiles), time.Minute)
	t.Cleanup(hub.Shutdown)

	userID := uuid.New()
	profiles.put(models.Profile{ID: userID, WatchedCoins: []string{"pepe"}, Holdings: map[string]string{}})

	first, second, other := hub.Create(), hub.Create(), hub.Create()
	events := make(chan identity.Event, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx, events, time.Hour)

	events <- identity.Event{Type: identity.EventSignedIn, UserID: userID, SessionID: first.ID(), Email: "ada@example.com"}
	events <- identity.Event{Type: identity.EventSignedIn, UserID: userID, SessionID: second.ID()}
	events <- identity.Event{Type: identity.EventSignedIn, UserID: userID, SessionID: "unknown"}

	require.Eventually(t, func() bool {
		return first.State() == StateSignedIn && second.State() == StateSignedIn
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateGuest, other.State())
	assert.Equal(t, "ada@example.com", first.View().User.Email)
	assert.Len(t, hub.SessionsOf(userID), 2)

	profiles.put(models.Profile{ID: userID, WatchedCoins: []string{"bitcoin"}, Holdings: map[string]string{}})
	events <- identity.Event{Type: identity.EventDataCleared, UserID: userID}
	require.Eventually(t, func() bool {
		return cardIDs(first.View())[0] == "bitcoin" && cardIDs(second.View())[0] == "bitcoin"
	}, time.Second, 5*time.Millisecond)

	events <- identity.Event{Type: identity.EventSignedOut, UserID: userID}
	require.Eventually(t, func() bool {
		return first.State() == StateGuest && second.State() == StateGuest
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, coin.DefaultWatchlist(), cardIDs(first.View()))
	assert.Empty(t, hub.SessionsOf(userID))
}

func TestHubSweepsIdleSessions(t *testing.T) {
	hub := NewHub(testOptions(&fakeFetcher{}, newFakeProfiles()), time.Minute)
	t.Cleanup(hub.Shutdown)

	idle := hub.Create()
	watched := hub.Create()
	unsubscribe := watched.Subscribe(func(models.DashboardView) {})
	defer unsubscribe()

	hub.Sweep(time.Now().Add(2 * time.Minute))

	_, ok := hub.Get(idle.ID())
	assert.False(t, ok)
	_, ok = hub.Get(watched.ID())
	assert.True(t, ok)
	assert.Equal(t, 1, hub.Len())
}
