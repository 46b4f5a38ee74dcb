package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"pairchat/internal/domain/message"
	"pairchat/internal/repository"
	pairchat_errors "pairchat/pkg/errors"
	"pairchat/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMessageService(repo repository.MessageRepository, files FileStore) *MessageService {
	return NewMessageService(repo, files, testConfig(), logger.NewNop())
}

func TestSendAndReadRoundTrip(t *testing.T) {
	repo := repository.NewMemoryMessageRepository()
	svc := newMessageService(repo, NewMemoryFileStore())

	roomID := uuid.New()
	sender := uuid.New()
	reader := uuid.New()

	m, err := svc.Send(context.Background(), SendInput{
		RoomID:   roomID,
		SenderID: sender,
		Body:     "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, message.KindText, m.Kind)
	assert.Equal(t, message.StatusSent, m.Status)
	assert.Nil(t, m.AutoDeleteAt)

	before, err := svc.UnreadCount(context.Background(), roomID, reader)
	require.NoError(t, err)
	assert.Equal(t, 1, before)

	require.NoError(t, svc.MarkRead(context.Background(), m.ID, reader))

	after, err := svc.UnreadCount(context.Background(), roomID, reader)
	require.NoError(t, err)
	assert.Equal(t, before-1, after)
}

func TestSendValidation(t *testing.T) {
	svc := newMessageService(repository.NewMemoryMessageRepository(), NewMemoryFileStore())

	_, err := svc.Send(context.Background(), SendInput{RoomID: uuid.New(), SenderID: uuid.New(), Body: "   "})
	assert.ErrorIs(t, err, pairchat_errors.ErrValidation)

	long := make([]byte, message.MaxBodyLen+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = svc.Send(context.Background(), SendInput{RoomID: uuid.New(), SenderID: uuid.New(), Body: string(long)})
	assert.ErrorIs(t, err, pairchat_errors.ErrValidation)
}

func TestSendBodyLimitCountsRunes(t *testing.T) {
	svc := newMessageService(repository.NewMemoryMessageRepository(), NewMemoryFileStore())

	// 400 four-byte runes: well under the character limit even though the
	// byte length exceeds it.
	emoji := strings.Repeat("\U0001F600", 400)
	m, err := svc.Send(context.Background(), SendInput{RoomID: uuid.New(), SenderID: uuid.New(), Body: emoji})
	require.NoError(t, err)
	assert.Equal(t, emoji, m.Body)

	tooMany := strings.Repeat("\U0001F600", message.MaxBodyLen+1)
	_, err = svc.Send(context.Background(), SendInput{RoomID: uuid.New(), SenderID: uuid.New(), Body: tooMany})
	assert.ErrorIs(t, err, pairchat_errors.ErrValidation)

	_, err = svc.Edit(context.Background(), m.ID, m.SenderID, tooMany)
	assert.ErrorIs(t, err, pairchat_errors.ErrValidation)
}

func TestSendImageSetsAutoDelete(t *testing.T) {
	svc := newMessageService(repository.NewMemoryMessageRepository(), NewMemoryFileStore())

	m, err := svc.Send(context.Background(), SendInput{
		RoomID:   uuid.New(),
		SenderID: uuid.New(),
		Body:     "pic",
		Kind:     message.KindImage,
	})
	require.NoError(t, err)
	require.NotNil(t, m.AutoDeleteAt)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *m.AutoDeleteAt, time.Minute)
}

func TestMarkReadIdempotent(t *testing.T) {
	repo := repository.NewMemoryMessageRepository()
	svc := newMessageService(repo, NewMemoryFileStore())

	m, err := svc.Send(context.Background(), SendInput{RoomID: uuid.New(), SenderID: uuid.New(), Body: "hi"})
	require.NoError(t, err)

	reader := uuid.New()
	require.NoError(t, svc.MarkRead(context.Background(), m.ID, reader))
	require.NoError(t, svc.MarkRead(context.Background(), m.ID, reader))

	stored, err := repo.GetByID(context.Background(), m.ID)
	require.NoError(t, err)

	entries := 0
	for _, rec := range stored.Receipts {
		if rec.UserID == reader && rec.ReadAt != nil {
			entries++
		}
	}
	assert.Equal(t, 1, entries)
	assert.Equal(t, message.StatusRead, stored.Status)
}

func TestViewOnceImage(t *testing.T) {
	repo := repository.NewMemoryMessageRepository()
	files := NewMemoryFileStore()
	svc := newMessageService(repo, files)

	sender := uuid.New()
	viewer := uuid.New()

	m, err := svc.SendFile(context.Background(), SendFileInput{
		RoomID:   uuid.New(),
		SenderID: sender,
		Attachment: message.Attachment{
			FileURL:     "memory://pics/cat.png",
			FileName:    "cat.png",
			FileSize:    512,
			StoragePath: "pics/cat.png",
			MimeType:    "image/png",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, message.KindImage, m.Kind)

	// The sender viewing their own image does not consume it.
	got, err := svc.MarkViewed(context.Background(), m.ID, sender)
	require.NoError(t, err)
	assert.False(t, got.Deleted())

	got, err = svc.MarkViewed(context.Background(), m.ID, viewer)
	require.NoError(t, err)
	assert.True(t, got.Deleted())
	assert.Equal(t, message.TombstoneBody, got.Body)
	assert.Contains(t, files.Removed(), "pics/cat.png")
}

func TestEditOwnershipAndKind(t *testing.T) {
	svc := newMessageService(repository.NewMemoryMessageRepository(), NewMemoryFileStore())

	sender := uuid.New()
	m, err := svc.Send(context.Background(), SendInput{RoomID: uuid.New(), SenderID: sender, Body: "first"})
	require.NoError(t, err)

	_, err = svc.Edit(context.Background(), m.ID, uuid.New(), "hacked")
	assert.ErrorIs(t, err, pairchat_errors.ErrForbidden)

	edited, err := svc.Edit(context.Background(), m.ID, sender, "second")
	require.NoError(t, err)
	assert.True(t, edited.Edited)
	assert.Equal(t, "second", edited.Body)
	assert.NotNil(t, edited.EditedAt)
}

func TestDeleteTombstonesAndUnlinks(t *testing.T) {
	files := NewMemoryFileStore()
	svc := newMessageService(repository.NewMemoryMessageRepository(), files)

	sender := uuid.New()
	m, err := svc.SendFile(context.Background(), SendFileInput{
		RoomID:   uuid.New(),
		SenderID: sender,
		Attachment: message.Attachment{
			FileName:    "doc.pdf",
			FileSize:    2048,
			StoragePath: "docs/doc.pdf",
			MimeType:    "application/pdf",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, message.KindFile, m.Kind)

	_, err = svc.Delete(context.Background(), m.ID, uuid.New())
	assert.ErrorIs(t, err, pairchat_errors.ErrForbidden)

	deleted, err := svc.Delete(context.Background(), m.ID, sender)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted())
	assert.Equal(t, message.TombstoneBody, deleted.Body)
	assert.Contains(t, files.Removed(), "docs/doc.pdf")
}

func TestRetentionCap(t *testing.T) {
	repo := repository.NewMemoryMessageRepository()
	files := NewMemoryFileStore()
	svc := newMessageService(repo, files)

	roomID := uuid.New()
	sender := uuid.New()

	var oldest message.Message
	for i := 0; i < 31; i++ {
		m := message.Message{
			ID:        uuid.New(),
			RoomID:    roomID,
			SenderID:  sender,
			Body:      fmt.Sprintf("msg %d", i),
			Kind:      message.KindText,
			Status:    message.StatusSent,
			State:     message.StateActive,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		if i == 0 {
			m.Attachment = &message.Attachment{StoragePath: "old/first.bin", FileName: "first.bin"}
			oldest = m
		}
		require.NoError(t, repo.Create(context.Background(), &m))
	}

	require.NoError(t, svc.Cleanup(context.Background(), roomID))

	count, err := repo.CountActive(context.Background(), roomID)
	require.NoError(t, err)
	assert.Equal(t, 30, count)

	_, err = repo.GetByID(context.Background(), oldest.ID)
	assert.ErrorIs(t, err, pairchat_errors.ErrNotFound)
	assert.Contains(t, files.Removed(), "old/first.bin")
}

func TestPurgeExpiredImages(t *testing.T) {
	repo := repository.NewMemoryMessageRepository()
	files := NewMemoryFileStore()
	svc := newMessageService(repo, files)

	past := time.Now().Add(-time.Hour)
	m := message.Message{
		ID:           uuid.New(),
		RoomID:       uuid.New(),
		SenderID:     uuid.New(),
		Body:         "pic",
		Kind:         message.KindImage,
		Status:       message.StatusSent,
		State:        message.StateActive,
		Attachment:   &message.Attachment{StoragePath: "pics/stale.png", FileName: "stale.png"},
		AutoDeleteAt: &past,
		CreatedAt:    time.Now().Add(-25 * time.Hour),
	}
	require.NoError(t, repo.Create(context.Background(), &m))

	n, err := svc.PurgeExpiredImages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = repo.GetByID(context.Background(), m.ID)
	assert.ErrorIs(t, err, pairchat_errors.ErrNotFound)
	assert.Contains(t, files.Removed(), "pics/stale.png")
}
