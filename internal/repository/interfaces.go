package repository

import (
	"context"
	"time"

	"pairchat/internal/domain/message"
	"pairchat/internal/domain/room"

	"github.com/google/uuid"
)

// RoomRepository owns Room persistence. Implementations must make TryJoin a
// single atomic conditional write: the pairing transition either wins the
// race or reports ErrRoomFull, never a partial update.
type RoomRepository interface {
	Create(ctx context.Context, r *room.Room) error
	GetByCode(ctx context.Context, code string) (room.Room, error)
	GetByRoomID(ctx context.Context, roomID uuid.UUID) (room.Room, error)

	// TryJoin performs the waiting->connected transition, setting the
	// joiner, room id, status and is_active in one conditional update
	// matched on status == waiting and no joiner present. Returns
	// ErrRoomFull when the condition did not hold, ErrNotFound when the
	// code does not exist.
	TryJoin(ctx context.Context, code string, joiner room.Party, roomID uuid.UUID) (room.Room, error)

	// UpdateStatus moves a room to a terminal status and clears is_active.
	// Idempotent: re-applying the same terminal status is not an error.
	UpdateStatus(ctx context.Context, code string, status room.Status) error

	TouchLastActive(ctx context.Context, code string, at time.Time) error
	GetRoomsForUser(ctx context.Context, userID uuid.UUID) ([]room.Room, error)

	// GetConnectedForUser returns fully-paired connected rooms for the
	// user, most recently active first.
	GetConnectedForUser(ctx context.Context, userID uuid.UUID) ([]room.Room, error)

	Delete(ctx context.Context, code string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// MessageRepository owns Message persistence including receipts.
type MessageRepository interface {
	Create(ctx context.Context, m *message.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)
	UpdateBody(ctx context.Context, id uuid.UUID, body string, editedAt time.Time) error

	// Tombstone soft-deletes: state, body and deleted_at change, the row
	// stays. Idempotent on already-tombstoned messages.
	Tombstone(ctx context.Context, id uuid.UUID) error

	// MarkRead / MarkViewed append a receipt for (message, user) at most
	// once. The bool result reports whether a new receipt was recorded.
	MarkRead(ctx context.Context, messageID, userID uuid.UUID, at time.Time) (bool, error)
	MarkViewed(ctx context.Context, messageID, userID uuid.UUID, at time.Time) (bool, error)

	ListRoomMessages(ctx context.Context, roomID uuid.UUID, limit int) ([]message.Message, error)
	UnreadCount(ctx context.Context, roomID, userID uuid.UUID) (int, error)

	// CountActive counts non-tombstoned messages in a room.
	CountActive(ctx context.Context, roomID uuid.UUID) (int, error)

	// OldestActive returns up to limit non-tombstoned messages in a room,
	// oldest first. Used by the retention sweep.
	OldestActive(ctx context.Context, roomID uuid.UUID, limit int) ([]message.Message, error)

	HardDelete(ctx context.Context, id uuid.UUID) error

	// PurgeExpiredImages hard-deletes image messages past auto_delete_at
	// and returns the purged records so backing files can be removed.
	PurgeExpiredImages(ctx context.Context, now time.Time) ([]message.Message, error)
}
