package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"pairchat/internal/domain/room"
	pairchat_errors "pairchat/pkg/errors"

	"github.com/google/uuid"
)

// MemoryRoomRepository is a mutex-guarded in-memory RoomRepository used in
// tests and local development. TryJoin holds the lock across the check and
// the write, giving the same one-winner guarantee as the SQL conditional
// update.
type MemoryRoomRepository struct {
	mu    sync.RWMutex
	rooms map[string]room.Room
}

func NewMemoryRoomRepository() *MemoryRoomRepository {
	return &MemoryRoomRepository{rooms: make(map[string]room.Room)}
}

func (r *MemoryRoomRepository) Create(_ context.Context, rm *room.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[rm.Code]; ok {
		return pairchat_errors.ErrConflict
	}
	r.rooms[rm.Code] = cloneRoom(*rm)
	return nil
}

func (r *MemoryRoomRepository) GetByCode(_ context.Context, code string) (room.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[code]
	if !ok {
		return room.Room{}, pairchat_errors.ErrNotFound
	}
	return cloneRoom(rm), nil
}

func (r *MemoryRoomRepository) GetByRoomID(_ context.Context, roomID uuid.UUID) (room.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rm := range r.rooms {
		if rm.RoomID.Valid && rm.RoomID.UUID == roomID {
			return cloneRoom(rm), nil
		}
	}
	return room.Room{}, pairchat_errors.ErrNotFound
}

func (r *MemoryRoomRepository) TryJoin(_ context.Context, code string, joiner room.Party, roomID uuid.UUID) (room.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[code]
	if !ok {
		return room.Room{}, pairchat_errors.ErrNotFound
	}
	if rm.Status != room.StatusWaiting || rm.Joiner != nil {
		return room.Room{}, pairchat_errors.ErrRoomFull
	}
	rm.Joiner = &joiner
	rm.Status = room.StatusConnected
	rm.IsActive = false
	rm.RoomID = uuid.NullUUID{UUID: roomID, Valid: true}
	rm.LastActiveAt = joiner.JoinedAt
	r.rooms[code] = rm
	return cloneRoom(rm), nil
}

func (r *MemoryRoomRepository) UpdateStatus(_ context.Context, code string, status room.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[code]
	if !ok {
		return pairchat_errors.ErrNotFound
	}
	rm.Status = status
	rm.IsActive = false
	r.rooms[code] = rm
	return nil
}

func (r *MemoryRoomRepository) TouchLastActive(_ context.Context, code string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[code]
	if !ok {
		return pairchat_errors.ErrNotFound
	}
	rm.LastActiveAt = at
	r.rooms[code] = rm
	return nil
}

func (r *MemoryRoomRepository) GetRoomsForUser(_ context.Context, userID uuid.UUID) ([]room.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]room.Room, 0, 8)
	for _, rm := range r.rooms {
		if rm.HasMember(userID) {
			out = append(out, cloneRoom(rm))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRoomRepository) GetConnectedForUser(_ context.Context, userID uuid.UUID) ([]room.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]room.Room, 0, 8)
	for _, rm := range r.rooms {
		if rm.HasMember(userID) && rm.Status == room.StatusConnected && rm.Joiner != nil {
			out = append(out, cloneRoom(rm))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActiveAt.After(out[j].LastActiveAt) })
	return out, nil
}

func (r *MemoryRoomRepository) Delete(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[code]; !ok {
		return pairchat_errors.ErrNotFound
	}
	delete(r.rooms, code)
	return nil
}

func (r *MemoryRoomRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for code, rm := range r.rooms {
		if now.After(rm.ExpiresAt) {
			delete(r.rooms, code)
			n++
		}
	}
	return n, nil
}

func cloneRoom(rm room.Room) room.Room {
	if rm.Joiner != nil {
		j := *rm.Joiner
		rm.Joiner = &j
	}
	return rm
}
