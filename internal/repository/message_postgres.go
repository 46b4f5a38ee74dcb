package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pairchat/internal/domain/message"
	pairchat_errors "pairchat/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresMessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *PostgresMessageRepository {
	return &PostgresMessageRepository{pool: pool}
}

const messageColumns = `id, room_id, sender_id, body, kind, status, state,
	reply_to_id, reply_snippet, reply_sender_id,
	edited, edited_at, deleted_at,
	file_url, file_name, file_size, storage_path, mime_type,
	auto_delete_at,
	call_type, call_status, call_caller_id, call_started_at, call_ended_at,
	created_at`

func (r *PostgresMessageRepository) Create(ctx context.Context, m *message.Message) error {
	var replyToID, replySenderID *uuid.UUID
	var replySnippet *string
	if m.ReplyTo != nil {
		replyToID = &m.ReplyTo.MessageID
		replySnippet = &m.ReplyTo.Snippet
		replySenderID = &m.ReplyTo.SenderID
	}

	var fileURL, fileName, storagePath, mimeType *string
	var fileSize *int64
	if m.Attachment != nil {
		fileURL = &m.Attachment.FileURL
		fileName = &m.Attachment.FileName
		fileSize = &m.Attachment.FileSize
		storagePath = &m.Attachment.StoragePath
		mimeType = &m.Attachment.MimeType
	}

	var callType, callStatus *string
	var callCallerID *uuid.UUID
	var callStartedAt, callEndedAt *time.Time
	if m.CallData != nil {
		callType = &m.CallData.CallType
		callStatus = &m.CallData.Status
		callCallerID = &m.CallData.CallerID
		callStartedAt = &m.CallData.StartedAt
		callEndedAt = m.CallData.EndedAt
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (id, room_id, sender_id, body, kind, status, state,
			reply_to_id, reply_snippet, reply_sender_id,
			file_url, file_name, file_size, storage_path, mime_type,
			auto_delete_at,
			call_type, call_status, call_caller_id, call_started_at, call_ended_at,
			created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		m.ID, m.RoomID, m.SenderID, m.Body, m.Kind, m.Status, m.State,
		replyToID, replySnippet, replySenderID,
		fileURL, fileName, fileSize, storagePath, mimeType,
		m.AutoDeleteAt,
		callType, callStatus, callCallerID, callStartedAt, callEndedAt,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("msgRepo.Create: %w", err)
	}
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = $1`, id)
	m, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return message.Message{}, pairchat_errors.ErrNotFound
	}
	if err != nil {
		return message.Message{}, fmt.Errorf("msgRepo.GetByID: %w", err)
	}
	if err := r.loadReceipts(ctx, &m); err != nil {
		return message.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) UpdateBody(ctx context.Context, id uuid.UUID, body string, editedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE messages SET body = $2, edited = true, edited_at = $3 WHERE id = $1`,
		id, body, editedAt,
	)
	if err != nil {
		return fmt.Errorf("msgRepo.UpdateBody: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pairchat_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) Tombstone(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE messages
		 SET state = $2, body = $3, deleted_at = now(),
		     file_url = NULL, file_name = NULL, file_size = NULL, mime_type = NULL
		 WHERE id = $1 AND state = $4`,
		id, message.StateTombstoned, message.TombstoneBody, message.StateActive,
	)
	if err != nil {
		return fmt.Errorf("msgRepo.Tombstone: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already tombstoned or missing; missing is the caller's problem.
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM messages WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("msgRepo.Tombstone exists: %w", err)
		}
		if !exists {
			return pairchat_errors.ErrNotFound
		}
	}
	return nil
}

func (r *PostgresMessageRepository) MarkRead(ctx context.Context, messageID, userID uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO message_receipts (message_id, user_id, read_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (message_id, user_id)
		 DO UPDATE SET read_at = $3 WHERE message_receipts.read_at IS NULL`,
		messageID, userID, at,
	)
	if err != nil {
		return false, fmt.Errorf("msgRepo.MarkRead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if _, err := r.pool.Exec(ctx,
		`UPDATE messages SET status = $2 WHERE id = $1`, messageID, message.StatusRead,
	); err != nil {
		return false, fmt.Errorf("msgRepo.MarkRead status: %w", err)
	}
	return true, nil
}

func (r *PostgresMessageRepository) MarkViewed(ctx context.Context, messageID, userID uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO message_receipts (message_id, user_id, viewed_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (message_id, user_id)
		 DO UPDATE SET viewed_at = $3 WHERE message_receipts.viewed_at IS NULL`,
		messageID, userID, at,
	)
	if err != nil {
		return false, fmt.Errorf("msgRepo.MarkViewed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresMessageRepository) ListRoomMessages(ctx context.Context, roomID uuid.UUID, limit int) ([]message.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE room_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, roomID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.ListRoomMessages query: %w", err)
	}
	defer rows.Close()

	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		if err := r.loadReceipts(ctx, &msgs[i]); err != nil {
			return nil, err
		}
	}
	return msgs, nil
}

func (r *PostgresMessageRepository) UnreadCount(ctx context.Context, roomID, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages m
		 WHERE m.room_id = $1 AND m.sender_id != $2 AND m.state != $3
		   AND NOT EXISTS (
		     SELECT 1 FROM message_receipts mr
		     WHERE mr.message_id = m.id AND mr.user_id = $2 AND mr.read_at IS NOT NULL
		   )`, roomID, userID, message.StateTombstoned,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("msgRepo.UnreadCount: %w", err)
	}
	return count, nil
}

func (r *PostgresMessageRepository) CountActive(ctx context.Context, roomID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE room_id = $1 AND state = $2`,
		roomID, message.StateActive,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("msgRepo.CountActive: %w", err)
	}
	return count, nil
}

func (r *PostgresMessageRepository) OldestActive(ctx context.Context, roomID uuid.UUID, limit int) ([]message.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE room_id = $1 AND state = $2
		 ORDER BY created_at ASC
		 LIMIT $3`, roomID, message.StateActive, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.OldestActive query: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

func (r *PostgresMessageRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("msgRepo.HardDelete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pairchat_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) PurgeExpiredImages(ctx context.Context, now time.Time) ([]message.Message, error) {
	rows, err := r.pool.Query(ctx,
		`DELETE FROM messages
		 WHERE kind = $1 AND auto_delete_at IS NOT NULL AND auto_delete_at < $2
		 RETURNING `+messageColumns, message.KindImage, now,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.PurgeExpiredImages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

func (r *PostgresMessageRepository) loadReceipts(ctx context.Context, m *message.Message) error {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, read_at, viewed_at FROM message_receipts WHERE message_id = $1`,
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("msgRepo.loadReceipts query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec message.Receipt
		if err := rows.Scan(&rec.UserID, &rec.ReadAt, &rec.ViewedAt); err != nil {
			return fmt.Errorf("msgRepo.loadReceipts scan: %w", err)
		}
		m.Receipts = append(m.Receipts, rec)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("msgRepo.loadReceipts rows: %w", err)
	}
	return nil
}

func scanMessage(row pgx.Row) (message.Message, error) {
	var m message.Message
	var replyToID, replySenderID *uuid.UUID
	var replySnippet *string
	var fileURL, fileName, storagePath, mimeType *string
	var fileSize *int64
	var callType, callStatus *string
	var callCallerID *uuid.UUID
	var callStartedAt, callEndedAt *time.Time

	err := row.Scan(
		&m.ID, &m.RoomID, &m.SenderID, &m.Body, &m.Kind, &m.Status, &m.State,
		&replyToID, &replySnippet, &replySenderID,
		&m.Edited, &m.EditedAt, &m.DeletedAt,
		&fileURL, &fileName, &fileSize, &storagePath, &mimeType,
		&m.AutoDeleteAt,
		&callType, &callStatus, &callCallerID, &callStartedAt, &callEndedAt,
		&m.CreatedAt,
	)
	if err != nil {
		return message.Message{}, err
	}

	if replyToID != nil {
		ref := message.ReplyRef{MessageID: *replyToID}
		if replySnippet != nil {
			ref.Snippet = *replySnippet
		}
		if replySenderID != nil {
			ref.SenderID = *replySenderID
		}
		m.ReplyTo = &ref
	}
	if storagePath != nil {
		att := message.Attachment{StoragePath: *storagePath}
		if fileURL != nil {
			att.FileURL = *fileURL
		}
		if fileName != nil {
			att.FileName = *fileName
		}
		if fileSize != nil {
			att.FileSize = *fileSize
		}
		if mimeType != nil {
			att.MimeType = *mimeType
		}
		m.Attachment = &att
	}
	if callType != nil {
		cd := message.CallData{CallType: *callType, EndedAt: callEndedAt}
		if callStatus != nil {
			cd.Status = *callStatus
		}
		if callCallerID != nil {
			cd.CallerID = *callCallerID
		}
		if callStartedAt != nil {
			cd.StartedAt = *callStartedAt
		}
		m.CallData = &cd
	}
	return m, nil
}

func collectMessages(rows pgx.Rows) ([]message.Message, error) {
	msgs := make([]message.Message, 0, 16)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("msgRepo scan: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("msgRepo rows: %w", err)
	}
	return msgs, nil
}
