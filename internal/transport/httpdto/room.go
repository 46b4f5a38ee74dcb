package httpdto

import (
	"time"

	"pairchat/internal/domain/room"
)

type CreateRoomRequest struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type ValidateCodeRequest struct {
	Code string `json:"code"`
}

type JoinRoomRequest struct {
	Code  string `json:"code"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type PartyView struct {
	UserID   string     `json:"user_id"`
	Email    string     `json:"email"`
	Name     string     `json:"name,omitempty"`
	JoinedAt *time.Time `json:"joined_at,omitempty"`
}

type RoomView struct {
	Code         string     `json:"code"`
	RoomID       string     `json:"room_id,omitempty"`
	Creator      PartyView  `json:"creator"`
	Joiner       *PartyView `json:"joiner,omitempty"`
	Status       string     `json:"status"`
	IsActive     bool       `json:"is_active"`
	ExpiresAt    time.Time  `json:"expires_at"`
	LastActiveAt time.Time  `json:"last_active_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

type ValidateCodeResponse struct {
	Valid  bool      `json:"valid"`
	Reason string    `json:"reason,omitempty"`
	Room   *RoomView `json:"room,omitempty"`
}

func FromRoom(rm room.Room) RoomView {
	view := RoomView{
		Code: rm.Code,
		Creator: PartyView{
			UserID: rm.Creator.UserID.String(),
			Email:  rm.Creator.Email,
			Name:   rm.Creator.Name,
		},
		Status:       string(rm.Status),
		IsActive:     rm.IsActive,
		ExpiresAt:    rm.ExpiresAt,
		LastActiveAt: rm.LastActiveAt,
		CreatedAt:    rm.CreatedAt,
	}
	if rm.RoomID.Valid {
		view.RoomID = rm.RoomID.UUID.String()
	}
	if rm.Joiner != nil {
		joinedAt := rm.Joiner.JoinedAt
		view.Joiner = &PartyView{
			UserID:   rm.Joiner.UserID.String(),
			Email:    rm.Joiner.Email,
			Name:     rm.Joiner.Name,
			JoinedAt: &joinedAt,
		}
	}
	return view
}

func FromRooms(rooms []room.Room) []RoomView {
	out := make([]RoomView, 0, len(rooms))
	for _, rm := range rooms {
		out = append(out, FromRoom(rm))
	}
	return out
}
