package room

import (
	"time"

	"github.com/google/uuid"
)

// Status is the pairing state of a room.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusConnected Status = "connected"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// CanTransition reports whether moving from s to next is a legal pairing
// transition. Connected, expired and cancelled are terminal.
func (s Status) CanTransition(next Status) bool {
	if s != StatusWaiting {
		return false
	}
	switch next {
	case StatusConnected, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// Party is one side of a room: the creator or the joiner.
type Party struct {
	UserID   uuid.UUID
	Email    string
	Name     string
	JoinedAt time.Time
}

// Room represents the rooms table.
//
// Code is the primary lookup key and unique for the lifetime of the row.
// RoomID is assigned exactly once, when the room becomes connected, and is
// the key realtime channels use afterwards.
type Room struct {
	Code         string
	RoomID       uuid.NullUUID
	Creator      Party
	Joiner       *Party
	Status       Status
	IsActive     bool
	ExpiresAt    time.Time
	LastActiveAt time.Time
	CreatedAt    time.Time
}

// IsExpired reports whether the room is past its code lifetime, regardless
// of the stored status. Stale statuses are reconciled lazily on read.
func (r *Room) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// HasMember reports whether userID is the creator or the joiner.
func (r *Room) HasMember(userID uuid.UUID) bool {
	if r.Creator.UserID == userID {
		return true
	}
	return r.Joiner != nil && r.Joiner.UserID == userID
}

// IsPaired reports whether both parties are present.
func (r *Room) IsPaired() bool {
	return r.Joiner != nil
}
