package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pairchat/config"
	"pairchat/internal/domain/room"
	"pairchat/internal/repository"
	pairchat_errors "pairchat/pkg/errors"
	"pairchat/pkg/logger"
	"pairchat/pkg/roomcode"

	"github.com/google/uuid"
)

// maxCodeAttempts bounds the retry-on-collision loop in CreateRoom.
const maxCodeAttempts = 5

// RoomService owns the pairing state machine: code generation, validation
// with lazy expiry, the one-time join transition and creator resets.
type RoomService struct {
	roomRepo repository.RoomRepository
	codeTTL  time.Duration
	log      *logger.Logger
}

func NewRoomService(roomRepo repository.RoomRepository, cfg *config.Config, log *logger.Logger) *RoomService {
	return &RoomService{
		roomRepo: roomRepo,
		codeTTL:  cfg.CodeTTL,
		log:      log,
	}
}

// CreateRoom generates a fresh code and persists a waiting room owned by
// the creator. Code collisions are retried a bounded number of times.
func (s *RoomService) CreateRoom(ctx context.Context, creator room.Party) (room.Room, error) {
	if creator.UserID == uuid.Nil || creator.Email == "" {
		return room.Room{}, pairchat_errors.ErrValidation
	}

	now := time.Now()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := roomcode.Generate()
		if err != nil {
			return room.Room{}, fmt.Errorf("roomService.CreateRoom: %w", err)
		}

		rm := room.Room{
			Code:         code,
			Creator:      creator,
			Status:       room.StatusWaiting,
			IsActive:     true,
			ExpiresAt:    now.Add(s.codeTTL),
			LastActiveAt: now,
			CreatedAt:    now,
		}

		err = s.roomRepo.Create(ctx, &rm)
		if err == nil {
			return rm, nil
		}
		if errors.Is(err, pairchat_errors.ErrConflict) {
			s.log.WarnfCtx(ctx, "room code collision, retrying: %s", code)
			continue
		}
		return room.Room{}, err
	}
	return room.Room{}, fmt.Errorf("roomService.CreateRoom: %w", pairchat_errors.ErrConflict)
}

// ValidateCode normalizes and looks up a code, reconciling stale expiry on
// the way. Returns ErrNotFound for unknown codes, ErrExpired for rooms past
// their lifetime (transitioning them first) and ErrConflict for codes
// already used for pairing or cancelled.
func (s *RoomService) ValidateCode(ctx context.Context, rawCode string) (room.Room, error) {
	code := roomcode.Normalize(rawCode)
	if !roomcode.Valid(code) {
		return room.Room{}, pairchat_errors.ErrValidation
	}

	rm, err := s.roomRepo.GetByCode(ctx, code)
	if err != nil {
		return room.Room{}, err
	}

	if rm.IsExpired(time.Now()) {
		s.expireLazily(ctx, &rm)
		return rm, pairchat_errors.ErrExpired
	}
	if rm.Status != room.StatusWaiting {
		return rm, pairchat_errors.ErrConflict
	}
	return rm, nil
}

// JoinRoom pairs the joiner into a waiting room. The transition itself is a
// single conditional update in the repository; losing the race surfaces as
// ErrRoomFull without retry.
func (s *RoomService) JoinRoom(ctx context.Context, rawCode string, joiner room.Party) (room.Room, error) {
	if joiner.UserID == uuid.Nil || joiner.Email == "" {
		return room.Room{}, pairchat_errors.ErrValidation
	}

	rm, err := s.ValidateCode(ctx, rawCode)
	if err != nil {
		if errors.Is(err, pairchat_errors.ErrConflict) && rm.Joiner != nil {
			return room.Room{}, pairchat_errors.ErrRoomFull
		}
		return room.Room{}, err
	}
	if rm.Creator.UserID == joiner.UserID {
		return room.Room{}, pairchat_errors.ErrSelfJoin
	}

	joiner.JoinedAt = time.Now()
	joined, err := s.roomRepo.TryJoin(ctx, rm.Code, joiner, uuid.New())
	if err != nil {
		return room.Room{}, err
	}
	return joined, nil
}

// ResetRoom retires a code. Only the creator may do this; the room moves to
// expired and stops accepting joins.
func (s *RoomService) ResetRoom(ctx context.Context, rawCode string, requesterID uuid.UUID) error {
	code := roomcode.Normalize(rawCode)
	rm, err := s.roomRepo.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if rm.Creator.UserID != requesterID {
		return pairchat_errors.ErrForbidden
	}
	return s.roomRepo.UpdateStatus(ctx, code, room.StatusExpired)
}

// GetRoomsForUser lists every room the user is party to, newest first.
func (s *RoomService) GetRoomsForUser(ctx context.Context, userID uuid.UUID) ([]room.Room, error) {
	if userID == uuid.Nil {
		return nil, pairchat_errors.ErrValidation
	}
	return s.roomRepo.GetRoomsForUser(ctx, userID)
}

// GetRoomByRoomID resolves the realtime channel key back to its room.
func (s *RoomService) GetRoomByRoomID(ctx context.Context, roomID uuid.UUID) (room.Room, error) {
	rm, err := s.roomRepo.GetByRoomID(ctx, roomID)
	if err != nil {
		return room.Room{}, err
	}
	if rm.IsExpired(time.Now()) {
		s.expireLazily(ctx, &rm)
		return rm, pairchat_errors.ErrExpired
	}
	return rm, nil
}

// DeleteExpiredRooms is the janitor entry point backing TTL deletion.
func (s *RoomService) DeleteExpiredRooms(ctx context.Context) (int64, error) {
	return s.roomRepo.DeleteExpired(ctx, time.Now())
}

// expireLazily reconciles a stale status in storage. The transition is
// idempotent, so a lost race with another reader is harmless.
func (s *RoomService) expireLazily(ctx context.Context, rm *room.Room) {
	if rm.Status == room.StatusExpired {
		return
	}
	if err := s.roomRepo.UpdateStatus(ctx, rm.Code, room.StatusExpired); err != nil {
		s.log.WarnfCtx(ctx, "lazy expiry failed for %s: %v", rm.Code, err)
	}
	rm.Status = room.StatusExpired
	rm.IsActive = false
}
