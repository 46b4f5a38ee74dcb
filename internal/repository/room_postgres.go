package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pairchat/internal/domain/room"
	pairchat_errors "pairchat/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRoomRepository struct {
	pool *pgxpool.Pool
}

func NewRoomRepository(pool *pgxpool.Pool) *PostgresRoomRepository {
	return &PostgresRoomRepository{pool: pool}
}

const roomColumns = `code, room_id, creator_id, creator_email, creator_name,
	joiner_id, joiner_email, joiner_name, joined_at,
	status, is_active, expires_at, last_active_at, created_at`

func (r *PostgresRoomRepository) Create(ctx context.Context, rm *room.Room) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO rooms (code, creator_id, creator_email, creator_name, status, is_active, expires_at, last_active_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rm.Code, rm.Creator.UserID, rm.Creator.Email, rm.Creator.Name,
		rm.Status, rm.IsActive, rm.ExpiresAt, rm.LastActiveAt, rm.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return pairchat_errors.ErrConflict
		}
		return fmt.Errorf("roomRepo.Create: %w", err)
	}
	return nil
}

func (r *PostgresRoomRepository) GetByCode(ctx context.Context, code string) (room.Room, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE code = $1`, code)
	rm, err := scanRoom(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return room.Room{}, pairchat_errors.ErrNotFound
	}
	if err != nil {
		return room.Room{}, fmt.Errorf("roomRepo.GetByCode: %w", err)
	}
	return rm, nil
}

func (r *PostgresRoomRepository) GetByRoomID(ctx context.Context, roomID uuid.UUID) (room.Room, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE room_id = $1`, roomID)
	rm, err := scanRoom(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return room.Room{}, pairchat_errors.ErrNotFound
	}
	if err != nil {
		return room.Room{}, fmt.Errorf("roomRepo.GetByRoomID: %w", err)
	}
	return rm, nil
}

// TryJoin is the pairing compare-and-swap: the UPDATE matches only a
// waiting room with no joiner, so exactly one concurrent join can win.
func (r *PostgresRoomRepository) TryJoin(ctx context.Context, code string, joiner room.Party, roomID uuid.UUID) (room.Room, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE rooms
		 SET joiner_id = $2, joiner_email = $3, joiner_name = $4, joined_at = $5,
		     status = $6, is_active = false, room_id = $7, last_active_at = $5
		 WHERE code = $1 AND status = $8 AND joiner_id IS NULL
		 RETURNING `+roomColumns,
		code, joiner.UserID, joiner.Email, joiner.Name, joiner.JoinedAt,
		room.StatusConnected, roomID, room.StatusWaiting,
	)
	rm, err := scanRoom(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Condition failed: distinguish a missing code from a lost race.
		if _, getErr := r.GetByCode(ctx, code); getErr != nil {
			return room.Room{}, getErr
		}
		return room.Room{}, pairchat_errors.ErrRoomFull
	}
	if err != nil {
		return room.Room{}, fmt.Errorf("roomRepo.TryJoin: %w", err)
	}
	return rm, nil
}

func (r *PostgresRoomRepository) UpdateStatus(ctx context.Context, code string, status room.Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE rooms SET status = $2, is_active = false WHERE code = $1`,
		code, status,
	)
	if err != nil {
		return fmt.Errorf("roomRepo.UpdateStatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pairchat_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresRoomRepository) TouchLastActive(ctx context.Context, code string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE rooms SET last_active_at = $2 WHERE code = $1`, code, at,
	)
	if err != nil {
		return fmt.Errorf("roomRepo.TouchLastActive: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pairchat_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresRoomRepository) GetRoomsForUser(ctx context.Context, userID uuid.UUID) ([]room.Room, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+roomColumns+` FROM rooms
		 WHERE creator_id = $1 OR joiner_id = $1
		 ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("roomRepo.GetRoomsForUser query: %w", err)
	}
	defer rows.Close()
	return collectRooms(rows)
}

func (r *PostgresRoomRepository) GetConnectedForUser(ctx context.Context, userID uuid.UUID) ([]room.Room, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+roomColumns+` FROM rooms
		 WHERE (creator_id = $1 OR joiner_id = $1)
		   AND status = $2 AND joiner_id IS NOT NULL
		 ORDER BY last_active_at DESC`, userID, room.StatusConnected,
	)
	if err != nil {
		return nil, fmt.Errorf("roomRepo.GetConnectedForUser query: %w", err)
	}
	defer rows.Close()
	return collectRooms(rows)
}

func (r *PostgresRoomRepository) Delete(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rooms WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("roomRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pairchat_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresRoomRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rooms WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("roomRepo.DeleteExpired: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanRoom(row pgx.Row) (room.Room, error) {
	var rm room.Room
	var joinerID *uuid.UUID
	var joinerEmail, joinerName *string
	var joinedAt *time.Time

	err := row.Scan(
		&rm.Code, &rm.RoomID,
		&rm.Creator.UserID, &rm.Creator.Email, &rm.Creator.Name,
		&joinerID, &joinerEmail, &joinerName, &joinedAt,
		&rm.Status, &rm.IsActive, &rm.ExpiresAt, &rm.LastActiveAt, &rm.CreatedAt,
	)
	if err != nil {
		return room.Room{}, err
	}

	if joinerID != nil {
		joiner := room.Party{UserID: *joinerID}
		if joinerEmail != nil {
			joiner.Email = *joinerEmail
		}
		if joinerName != nil {
			joiner.Name = *joinerName
		}
		if joinedAt != nil {
			joiner.JoinedAt = *joinedAt
		}
		rm.Joiner = &joiner
	}
	return rm, nil
}

func collectRooms(rows pgx.Rows) ([]room.Room, error) {
	rooms := make([]room.Room, 0, 8)
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("roomRepo scan: %w", err)
		}
		rooms = append(rooms, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roomRepo rows: %w", err)
	}
	return rooms, nil
}
