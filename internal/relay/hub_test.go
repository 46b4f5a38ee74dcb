package relay

import (
	"sync"
	"testing"

	"pairchat/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	return NewClient(nil, services.Identity{UserID: uuid.New()})
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	c := testClient()

	prev := hub.Register(c)
	assert.Nil(t, prev)
	assert.Equal(t, 1, hub.ClientCount())
	assert.Same(t, c, hub.ClientFor(c.UserID))

	left := hub.Unregister(c)
	assert.Empty(t, left)
	assert.Equal(t, 0, hub.ClientCount())
	assert.Nil(t, hub.ClientFor(c.UserID))
}

func TestHubReconnectReplacesConnection(t *testing.T) {
	hub := NewHub()
	identity := services.Identity{UserID: uuid.New()}
	first := NewClient(nil, identity)
	second := NewClient(nil, identity)

	require.Nil(t, hub.Register(first))
	prev := hub.Register(second)
	assert.Same(t, first, prev)
	assert.Same(t, second, hub.ClientFor(identity.UserID))

	// The stale handle must not evict the live one.
	hub.Unregister(first)
	assert.Same(t, second, hub.ClientFor(identity.UserID))
}

func TestHubRoomMembership(t *testing.T) {
	hub := NewHub()
	roomID := uuid.New()
	a := testClient()
	b := testClient()

	hub.Register(a)
	hub.Register(b)
	hub.JoinRoom(roomID, a)
	hub.JoinRoom(roomID, b)

	assert.Len(t, hub.Members(roomID), 2)
	assert.ElementsMatch(t, []uuid.UUID{a.UserID, b.UserID}, hub.MemberIDs(roomID))

	hub.LeaveRoom(roomID, a)
	assert.Len(t, hub.Members(roomID), 1)

	left := hub.Unregister(b)
	assert.Equal(t, []uuid.UUID{roomID}, left)
	assert.Empty(t, hub.Members(roomID))
}

func TestHubConcurrentJoins(t *testing.T) {
	hub := NewHub()
	roomID := uuid.New()

	const n = 32
	clients := make([]*Client, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		clients[i] = testClient()
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			hub.Register(c)
			hub.JoinRoom(roomID, c)
		}(clients[i])
	}
	wg.Wait()

	assert.Equal(t, n, hub.ClientCount())
	assert.Len(t, hub.Members(roomID), n)

	var wg2 sync.WaitGroup
	for _, c := range clients {
		wg2.Add(1)
		go func(c *Client) {
			defer wg2.Done()
			hub.Unregister(c)
		}(c)
	}
	wg2.Wait()

	assert.Equal(t, 0, hub.ClientCount())
	assert.Empty(t, hub.Members(roomID))
}

func TestHubCallTracking(t *testing.T) {
	hub := NewHub()
	roomID := uuid.New()
	caller := uuid.New()

	_, active := hub.ActiveCall(roomID)
	assert.False(t, active)

	hub.SetCall(roomID, caller)
	got, active := hub.ActiveCall(roomID)
	assert.True(t, active)
	assert.Equal(t, caller, got)

	hub.ClearCall(roomID)
	_, active = hub.ActiveCall(roomID)
	assert.False(t, active)
}

func TestHubStopClearsState(t *testing.T) {
	hub := NewHub()
	roomID := uuid.New()
	c := testClient()
	hub.Register(c)
	hub.JoinRoom(roomID, c)
	hub.SetCall(roomID, c.UserID)

	hub.Stop()

	assert.Equal(t, 0, hub.ClientCount())
	assert.Empty(t, hub.Members(roomID))
	_, active := hub.ActiveCall(roomID)
	assert.False(t, active)
}
