package services

import (
	"context"
	"time"

	"pairchat/internal/domain/room"
	"pairchat/internal/repository"
	pairchat_errors "pairchat/pkg/errors"
	"pairchat/pkg/logger"
	"pairchat/pkg/roomcode"

	"github.com/google/uuid"
)

// SessionService is the resumable-sessions view over the room registry:
// connected, unexpired, fully paired rooms a user can come back to.
type SessionService struct {
	roomRepo repository.RoomRepository
	log      *logger.Logger
}

func NewSessionService(roomRepo repository.RoomRepository, log *logger.Logger) *SessionService {
	return &SessionService{roomRepo: roomRepo, log: log}
}

// ListActiveSessions returns the user's resumable rooms, most recently
// active first. Rooms past their lifetime are filtered out and reconciled.
func (s *SessionService) ListActiveSessions(ctx context.Context, userID uuid.UUID) ([]room.Room, error) {
	if userID == uuid.Nil {
		return nil, pairchat_errors.ErrValidation
	}

	rooms, err := s.roomRepo.GetConnectedForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out := make([]room.Room, 0, len(rooms))
	for _, rm := range rooms {
		if rm.IsExpired(now) {
			s.expireLazily(ctx, rm)
			continue
		}
		out = append(out, rm)
	}
	return out, nil
}

// ResumeSession re-validates a connected room for the caller and bumps its
// lastActiveAt.
func (s *SessionService) ResumeSession(ctx context.Context, rawCode string, userID uuid.UUID) (room.Room, error) {
	code := roomcode.Normalize(rawCode)
	rm, err := s.roomRepo.GetByCode(ctx, code)
	if err != nil {
		return room.Room{}, err
	}

	if rm.IsExpired(time.Now()) {
		s.expireLazily(ctx, rm)
		return room.Room{}, pairchat_errors.ErrExpired
	}
	if rm.Status != room.StatusConnected || !rm.IsPaired() {
		return room.Room{}, pairchat_errors.ErrNotFound
	}
	if !rm.HasMember(userID) {
		return room.Room{}, pairchat_errors.ErrForbidden
	}

	now := time.Now()
	if err := s.roomRepo.TouchLastActive(ctx, code, now); err != nil {
		return room.Room{}, err
	}
	rm.LastActiveAt = now
	return rm, nil
}

// DeleteSession removes the room record outright. Creator-only.
func (s *SessionService) DeleteSession(ctx context.Context, rawCode string, userID uuid.UUID) error {
	code := roomcode.Normalize(rawCode)
	rm, err := s.roomRepo.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if rm.Creator.UserID != userID {
		return pairchat_errors.ErrForbidden
	}
	return s.roomRepo.Delete(ctx, code)
}

func (s *SessionService) expireLazily(ctx context.Context, rm room.Room) {
	if rm.Status == room.StatusExpired {
		return
	}
	if err := s.roomRepo.UpdateStatus(ctx, rm.Code, room.StatusExpired); err != nil {
		s.log.WarnfCtx(ctx, "lazy expiry failed for %s: %v", rm.Code, err)
	}
}
