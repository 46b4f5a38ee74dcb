package relay

import (
	"sync"

	"github.com/google/uuid"
)

// Hub is the process-wide presence registry: user to connection, room to
// present members, room to active call. It is created at process start,
// injected into the relay, and cleared on Stop. Every mutation is one
// locked step, so concurrent connects for the same room never tear the
// maps.
type Hub struct {
	mu sync.RWMutex

	// clients maps user ID to their current connection. A reconnect
	// replaces the previous handle.
	clients map[uuid.UUID]*Client

	// rooms maps room ID to the set of present members.
	rooms map[uuid.UUID]map[uuid.UUID]*Client

	// calls maps room ID to the user who started the in-progress call.
	calls map[uuid.UUID]uuid.UUID
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]*Client),
		rooms:   make(map[uuid.UUID]map[uuid.UUID]*Client),
		calls:   make(map[uuid.UUID]uuid.UUID),
	}
}

// Register tracks a new connection for the user and returns the previous
// one, if any, so the caller can close it.
func (h *Hub) Register(client *Client) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.clients[client.UserID]
	h.clients[client.UserID] = client
	return prev
}

// Unregister drops the connection and removes it from every room it was
// present in. Returns the rooms left behind for departure notices. A stale
// handle (already replaced by a reconnect) only cleans up its own rooms.
func (h *Hub) Unregister(client *Client) []uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()

	left := make([]uuid.UUID, 0, 2)
	for roomID, members := range h.rooms {
		if members[client.UserID] == client {
			delete(members, client.UserID)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
			left = append(left, roomID)
		}
	}

	if h.clients[client.UserID] == client {
		delete(h.clients, client.UserID)
	}
	return left
}

// JoinRoom adds the client to a room's member set.
func (h *Hub) JoinRoom(roomID uuid.UUID, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[uuid.UUID]*Client)
		h.rooms[roomID] = members
	}
	members[client.UserID] = client
}

// LeaveRoom removes the client from a room's member set.
func (h *Hub) LeaveRoom(roomID uuid.UUID, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	if members[client.UserID] == client {
		delete(members, client.UserID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// Members returns the clients currently present in a room.
func (h *Hub) Members(roomID uuid.UUID) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := h.rooms[roomID]
	out := make([]*Client, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

// MemberIDs returns the user IDs present in a room.
func (h *Hub) MemberIDs(roomID uuid.UUID) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := h.rooms[roomID]
	out := make([]uuid.UUID, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

// ClientFor returns the connection for an online user, or nil.
func (h *Hub) ClientFor(userID uuid.UUID) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[userID]
}

// SetCall marks a call as in progress in the room, keyed by its initiator.
func (h *Hub) SetCall(roomID, callerID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls[roomID] = callerID
}

// ClearCall removes the in-progress call marker for a room.
func (h *Hub) ClearCall(roomID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.calls, roomID)
}

// ActiveCall reports whether a call is in progress in the room.
func (h *Hub) ActiveCall(roomID uuid.UUID) (uuid.UUID, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	caller, ok := h.calls[roomID]
	return caller, ok
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop clears all presence state. Presence is best-effort and never
// persisted, so a restart simply starts from empty maps.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		c.Close()
	}
	h.clients = make(map[uuid.UUID]*Client)
	h.rooms = make(map[uuid.UUID]map[uuid.UUID]*Client)
	h.calls = make(map[uuid.UUID]uuid.UUID)
}
