package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"pairchat/internal/domain/message"
	pairchat_errors "pairchat/pkg/errors"

	"github.com/google/uuid"
)

// MemoryMessageRepository is the in-memory MessageRepository counterpart.
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages map[uuid.UUID]message.Message
}

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{messages: make(map[uuid.UUID]message.Message)}
}

func (r *MemoryMessageRepository) Create(_ context.Context, m *message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[m.ID]; ok {
		return pairchat_errors.ErrConflict
	}
	r.messages[m.ID] = cloneMessage(*m)
	return nil
}

func (r *MemoryMessageRepository) GetByID(_ context.Context, id uuid.UUID) (message.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.messages[id]
	if !ok {
		return message.Message{}, pairchat_errors.ErrNotFound
	}
	return cloneMessage(m), nil
}

func (r *MemoryMessageRepository) UpdateBody(_ context.Context, id uuid.UUID, body string, editedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return pairchat_errors.ErrNotFound
	}
	m.Body = body
	m.Edited = true
	m.EditedAt = &editedAt
	r.messages[id] = m
	return nil
}

func (r *MemoryMessageRepository) Tombstone(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return pairchat_errors.ErrNotFound
	}
	if m.Tombstone(time.Now()) {
		m.Attachment = nil
		r.messages[id] = m
	}
	return nil
}

func (r *MemoryMessageRepository) MarkRead(_ context.Context, messageID, userID uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[messageID]
	if !ok {
		return false, pairchat_errors.ErrNotFound
	}
	if rec := m.ReceiptFor(userID); rec != nil {
		if rec.ReadAt != nil {
			return false, nil
		}
		rec.ReadAt = &at
	} else {
		m.Receipts = append(m.Receipts, message.Receipt{UserID: userID, ReadAt: &at})
	}
	m.Status = message.StatusRead
	r.messages[messageID] = m
	return true, nil
}

func (r *MemoryMessageRepository) MarkViewed(_ context.Context, messageID, userID uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[messageID]
	if !ok {
		return false, pairchat_errors.ErrNotFound
	}
	if rec := m.ReceiptFor(userID); rec != nil {
		if rec.ViewedAt != nil {
			return false, nil
		}
		rec.ViewedAt = &at
	} else {
		m.Receipts = append(m.Receipts, message.Receipt{UserID: userID, ViewedAt: &at})
	}
	r.messages[messageID] = m
	return true, nil
}

func (r *MemoryMessageRepository) ListRoomMessages(_ context.Context, roomID uuid.UUID, limit int) ([]message.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]message.Message, 0, 16)
	for _, m := range r.messages {
		if m.RoomID == roomID {
			out = append(out, cloneMessage(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryMessageRepository) UnreadCount(_ context.Context, roomID, userID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, m := range r.messages {
		if m.RoomID != roomID || m.SenderID == userID || m.State == message.StateTombstoned {
			continue
		}
		if !m.ReadBy(userID) {
			count++
		}
	}
	return count, nil
}

func (r *MemoryMessageRepository) CountActive(_ context.Context, roomID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, m := range r.messages {
		if m.RoomID == roomID && m.State == message.StateActive {
			count++
		}
	}
	return count, nil
}

func (r *MemoryMessageRepository) OldestActive(_ context.Context, roomID uuid.UUID, limit int) ([]message.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]message.Message, 0, limit)
	for _, m := range r.messages {
		if m.RoomID == roomID && m.State == message.StateActive {
			out = append(out, cloneMessage(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryMessageRepository) HardDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[id]; !ok {
		return pairchat_errors.ErrNotFound
	}
	delete(r.messages, id)
	return nil
}

func (r *MemoryMessageRepository) PurgeExpiredImages(_ context.Context, now time.Time) ([]message.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	purged := make([]message.Message, 0, 4)
	for id, m := range r.messages {
		if m.Kind == message.KindImage && m.AutoDeleteAt != nil && m.AutoDeleteAt.Before(now) {
			purged = append(purged, cloneMessage(m))
			delete(r.messages, id)
		}
	}
	return purged, nil
}

func cloneMessage(m message.Message) message.Message {
	if m.ReplyTo != nil {
		ref := *m.ReplyTo
		m.ReplyTo = &ref
	}
	if m.Attachment != nil {
		att := *m.Attachment
		m.Attachment = &att
	}
	if m.CallData != nil {
		cd := *m.CallData
		m.CallData = &cd
	}
	if m.Receipts != nil {
		recs := make([]message.Receipt, len(m.Receipts))
		copy(recs, m.Receipts)
		m.Receipts = recs
	}
	return m
}
