package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"pairchat/config"
	"pairchat/internal/domain/message"
	"pairchat/internal/repository"
	pairchat_errors "pairchat/pkg/errors"
	"pairchat/pkg/logger"

	"github.com/google/uuid"
)

// sweepTimeout bounds each detached retention sweep.
const sweepTimeout = 10 * time.Second

// MessageService owns the ephemeral message lifecycle: sends, receipts with
// view-once semantics, edits, tombstoning deletes and the retention sweep.
type MessageService struct {
	msgRepo      repository.MessageRepository
	files        FileStore
	retentionCap int
	imageTTL     time.Duration
	log          *logger.Logger
}

func NewMessageService(msgRepo repository.MessageRepository, files FileStore, cfg *config.Config, log *logger.Logger) *MessageService {
	return &MessageService{
		msgRepo:      msgRepo,
		files:        files,
		retentionCap: cfg.RetentionCap,
		imageTTL:     cfg.ImageTTL,
		log:          log,
	}
}

type SendInput struct {
	RoomID   uuid.UUID
	SenderID uuid.UUID
	Body     string
	Kind     message.Kind
	ReplyTo  *message.ReplyRef
}

type SendFileInput struct {
	RoomID     uuid.UUID
	SenderID   uuid.UUID
	Caption    string
	Attachment message.Attachment
}

// Send validates and persists a message, then kicks off the retention sweep
// in a detached task. Sweep failures never reach the sender.
func (s *MessageService) Send(ctx context.Context, in SendInput) (message.Message, error) {
	if in.RoomID == uuid.Nil || in.SenderID == uuid.Nil {
		return message.Message{}, pairchat_errors.ErrValidation
	}
	body := strings.TrimSpace(in.Body)
	// The bound is characters, not bytes; multi-byte runes count once.
	if body == "" || utf8.RuneCountInString(body) > message.MaxBodyLen {
		return message.Message{}, pairchat_errors.ErrValidation
	}
	kind := in.Kind
	if kind == "" {
		kind = message.KindText
	}

	now := time.Now()
	m := message.Message{
		ID:        uuid.New(),
		RoomID:    in.RoomID,
		SenderID:  in.SenderID,
		Body:      body,
		Kind:      kind,
		Status:    message.StatusSent,
		State:     message.StateActive,
		ReplyTo:   in.ReplyTo,
		CreatedAt: now,
	}
	if kind == message.KindImage {
		deleteAt := now.Add(s.imageTTL)
		m.AutoDeleteAt = &deleteAt
	}

	if err := s.msgRepo.Create(ctx, &m); err != nil {
		return message.Message{}, err
	}

	s.sweepAsync(ctx, in.RoomID)
	return m, nil
}

// SendFile persists a message around an already-stored attachment
// descriptor. The kind follows the declared mime type.
func (s *MessageService) SendFile(ctx context.Context, in SendFileInput) (message.Message, error) {
	if in.RoomID == uuid.Nil || in.SenderID == uuid.Nil || in.Attachment.StoragePath == "" {
		return message.Message{}, pairchat_errors.ErrValidation
	}

	kind := message.KindFile
	if strings.HasPrefix(in.Attachment.MimeType, "image/") {
		kind = message.KindImage
	}

	body := strings.TrimSpace(in.Caption)
	if body == "" {
		body = in.Attachment.FileName
	}

	now := time.Now()
	m := message.Message{
		ID:         uuid.New(),
		RoomID:     in.RoomID,
		SenderID:   in.SenderID,
		Body:       body,
		Kind:       kind,
		Status:     message.StatusSent,
		State:      message.StateActive,
		Attachment: &in.Attachment,
		CreatedAt:  now,
	}
	if kind == message.KindImage {
		deleteAt := now.Add(s.imageTTL)
		m.AutoDeleteAt = &deleteAt
	}

	if err := s.msgRepo.Create(ctx, &m); err != nil {
		return message.Message{}, err
	}

	s.sweepAsync(ctx, in.RoomID)
	return m, nil
}

// MarkRead records a read receipt once per (message, user).
func (s *MessageService) MarkRead(ctx context.Context, messageID, userID uuid.UUID) error {
	_, err := s.msgRepo.MarkRead(ctx, messageID, userID, time.Now())
	return err
}

// MarkViewed records a view receipt. Viewing an image as the non-sender
// tombstones it immediately, regardless of its 24h horizon.
func (s *MessageService) MarkViewed(ctx context.Context, messageID, userID uuid.UUID) (message.Message, error) {
	m, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return message.Message{}, err
	}

	if _, err := s.msgRepo.MarkViewed(ctx, messageID, userID, time.Now()); err != nil {
		return message.Message{}, err
	}

	if m.Kind == message.KindImage && m.SenderID != userID && !m.Deleted() {
		if err := s.msgRepo.Tombstone(ctx, messageID); err != nil {
			return message.Message{}, err
		}
		s.unlinkAttachment(ctx, m)
	}

	return s.msgRepo.GetByID(ctx, messageID)
}

// Edit replaces the body of the sender's own text message.
func (s *MessageService) Edit(ctx context.Context, messageID, requesterID uuid.UUID, newBody string) (message.Message, error) {
	body := strings.TrimSpace(newBody)
	if body == "" || utf8.RuneCountInString(body) > message.MaxBodyLen {
		return message.Message{}, pairchat_errors.ErrValidation
	}

	m, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return message.Message{}, err
	}
	if m.SenderID != requesterID {
		return message.Message{}, pairchat_errors.ErrForbidden
	}
	if m.Kind != message.KindText || m.Deleted() {
		return message.Message{}, pairchat_errors.ErrValidation
	}

	if err := s.msgRepo.UpdateBody(ctx, messageID, body, time.Now()); err != nil {
		return message.Message{}, err
	}
	return s.msgRepo.GetByID(ctx, messageID)
}

// Delete tombstones the sender's own message and best-effort unlinks any
// backing file.
func (s *MessageService) Delete(ctx context.Context, messageID, requesterID uuid.UUID) (message.Message, error) {
	m, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return message.Message{}, err
	}
	if m.SenderID != requesterID {
		return message.Message{}, pairchat_errors.ErrForbidden
	}

	if err := s.msgRepo.Tombstone(ctx, messageID); err != nil {
		return message.Message{}, err
	}
	s.unlinkAttachment(ctx, m)

	return s.msgRepo.GetByID(ctx, messageID)
}

// UnreadCount counts active messages from the other party that the user has
// not read yet.
func (s *MessageService) UnreadCount(ctx context.Context, roomID, userID uuid.UUID) (int, error) {
	return s.msgRepo.UnreadCount(ctx, roomID, userID)
}

// ListRoomMessages returns the newest messages for a room, for session
// resume. Tombstoned messages keep only their placeholder body.
func (s *MessageService) ListRoomMessages(ctx context.Context, roomID uuid.UUID, limit int) ([]message.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.msgRepo.ListRoomMessages(ctx, roomID, limit)
}

// Cleanup enforces the retention cap: when a room holds more than the cap
// of active messages, the oldest excess is hard-deleted along with backing
// files. Exposed for the janitor; sends trigger it via sweepAsync.
func (s *MessageService) Cleanup(ctx context.Context, roomID uuid.UUID) error {
	count, err := s.msgRepo.CountActive(ctx, roomID)
	if err != nil {
		return err
	}
	excess := count - s.retentionCap
	if excess <= 0 {
		return nil
	}

	victims, err := s.msgRepo.OldestActive(ctx, roomID, excess)
	if err != nil {
		return err
	}
	for _, v := range victims {
		s.unlinkAttachment(ctx, v)
		if err := s.msgRepo.HardDelete(ctx, v.ID); err != nil && !errors.Is(err, pairchat_errors.ErrNotFound) {
			return err
		}
	}
	return nil
}

// PurgeExpiredImages removes image messages past their 24h horizon and
// their backing files. Janitor entry point.
func (s *MessageService) PurgeExpiredImages(ctx context.Context) (int, error) {
	purged, err := s.msgRepo.PurgeExpiredImages(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	for _, m := range purged {
		s.unlinkAttachment(ctx, m)
	}
	return len(purged), nil
}

func (s *MessageService) sweepAsync(ctx context.Context, roomID uuid.UUID) {
	go func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if err := s.Cleanup(sweepCtx, roomID); err != nil {
			s.log.ErrorfCtx(ctx, "retention sweep failed for room %s: %v", roomID, err)
		}
	}()
}

func (s *MessageService) unlinkAttachment(ctx context.Context, m message.Message) {
	if m.Attachment == nil || m.Attachment.StoragePath == "" || s.files == nil {
		return
	}
	if err := s.files.Remove(ctx, m.Attachment.StoragePath); err != nil {
		s.log.WarnfCtx(ctx, "file unlink failed for %s: %v", m.Attachment.StoragePath, err)
	}
}
