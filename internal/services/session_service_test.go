package services

import (
	"context"
	"testing"
	"time"

	"pairchat/internal/domain/room"
	"pairchat/internal/repository"
	pairchat_errors "pairchat/pkg/errors"
	"pairchat/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairedRoom(t *testing.T, repo *repository.MemoryRoomRepository, svc *RoomService, creator, joiner room.Party) room.Room {
	t.Helper()
	rm, err := svc.CreateRoom(context.Background(), creator)
	require.NoError(t, err)
	joined, err := svc.JoinRoom(context.Background(), rm.Code, joiner)
	require.NoError(t, err)
	return joined
}

func TestListActiveSessions(t *testing.T) {
	repo := repository.NewMemoryRoomRepository()
	roomSvc := newRoomService(repo)
	svc := NewSessionService(repo, logger.NewNop())

	creator := party("alice@example.com")
	joiner := party("bob@example.com")

	first := pairedRoom(t, repo, roomSvc, creator, joiner)
	second := pairedRoom(t, repo, roomSvc, creator, party("carol@example.com"))

	// A waiting room is not resumable.
	_, err := roomSvc.CreateRoom(context.Background(), creator)
	require.NoError(t, err)

	require.NoError(t, repo.TouchLastActive(context.Background(), second.Code, time.Now().Add(time.Minute)))

	sessions, err := svc.ListActiveSessions(context.Background(), creator.UserID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.Code, sessions[0].Code)
	assert.Equal(t, first.Code, sessions[1].Code)

	joinerSessions, err := svc.ListActiveSessions(context.Background(), joiner.UserID)
	require.NoError(t, err)
	require.Len(t, joinerSessions, 1)
	assert.Equal(t, first.Code, joinerSessions[0].Code)
}

func TestListActiveSessionsFiltersExpired(t *testing.T) {
	repo := repository.NewMemoryRoomRepository()
	svc := NewSessionService(repo, logger.NewNop())

	creator := party("alice@example.com")
	joiner := party("bob@example.com")
	expired := room.Room{
		Code:         "AB12-CD34-EF56",
		RoomID:       uuid.NullUUID{UUID: uuid.New(), Valid: true},
		Creator:      creator,
		Joiner:       &joiner,
		Status:       room.StatusConnected,
		ExpiresAt:    time.Now().Add(-time.Hour),
		LastActiveAt: time.Now(),
		CreatedAt:    time.Now().Add(-time.Hour),
	}
	require.NoError(t, repo.Create(context.Background(), &expired))

	sessions, err := svc.ListActiveSessions(context.Background(), creator.UserID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestResumeSession(t *testing.T) {
	repo := repository.NewMemoryRoomRepository()
	roomSvc := newRoomService(repo)
	svc := NewSessionService(repo, logger.NewNop())

	creator := party("alice@example.com")
	joiner := party("bob@example.com")
	rm := pairedRoom(t, repo, roomSvc, creator, joiner)

	before := rm.LastActiveAt
	time.Sleep(5 * time.Millisecond)

	resumed, err := svc.ResumeSession(context.Background(), rm.Code, joiner.UserID)
	require.NoError(t, err)
	assert.True(t, resumed.LastActiveAt.After(before))

	_, err = svc.ResumeSession(context.Background(), rm.Code, uuid.New())
	assert.ErrorIs(t, err, pairchat_errors.ErrForbidden)
}

func TestResumeSessionExpired(t *testing.T) {
	repo := repository.NewMemoryRoomRepository()
	svc := NewSessionService(repo, logger.NewNop())

	creator := party("alice@example.com")
	joiner := party("bob@example.com")
	expired := room.Room{
		Code:         "AB12-CD34-EF56",
		RoomID:       uuid.NullUUID{UUID: uuid.New(), Valid: true},
		Creator:      creator,
		Joiner:       &joiner,
		Status:       room.StatusConnected,
		ExpiresAt:    time.Now().Add(-time.Minute),
		LastActiveAt: time.Now(),
		CreatedAt:    time.Now().Add(-time.Hour),
	}
	require.NoError(t, repo.Create(context.Background(), &expired))

	_, err := svc.ResumeSession(context.Background(), expired.Code, creator.UserID)
	assert.ErrorIs(t, err, pairchat_errors.ErrExpired)

	stored, err := repo.GetByCode(context.Background(), expired.Code)
	require.NoError(t, err)
	assert.Equal(t, room.StatusExpired, stored.Status)
}

func TestDeleteSession(t *testing.T) {
	repo := repository.NewMemoryRoomRepository()
	roomSvc := newRoomService(repo)
	svc := NewSessionService(repo, logger.NewNop())

	creator := party("alice@example.com")
	joiner := party("bob@example.com")
	rm := pairedRoom(t, repo, roomSvc, creator, joiner)

	err := svc.DeleteSession(context.Background(), rm.Code, joiner.UserID)
	assert.ErrorIs(t, err, pairchat_errors.ErrForbidden)

	require.NoError(t, svc.DeleteSession(context.Background(), rm.Code, creator.UserID))

	_, err = repo.GetByCode(context.Background(), rm.Code)
	assert.ErrorIs(t, err, pairchat_errors.ErrNotFound)
}
