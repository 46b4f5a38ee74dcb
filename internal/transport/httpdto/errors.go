package httpdto

import (
	"errors"
	"net/http"

	pairchat_errors "pairchat/pkg/errors"
)

// ErrorCode maps a service error to its stable user-facing code. Internal
// detail never leaks through this boundary.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, pairchat_errors.ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, pairchat_errors.ErrAuth):
		return "AUTH_ERROR"
	case errors.Is(err, pairchat_errors.ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, pairchat_errors.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, pairchat_errors.ErrRoomFull):
		return "ROOM_FULL"
	case errors.Is(err, pairchat_errors.ErrSelfJoin):
		return "SELF_JOIN"
	case errors.Is(err, pairchat_errors.ErrConflict):
		return "CONFLICT"
	case errors.Is(err, pairchat_errors.ErrExpired):
		return "EXPIRED"
	default:
		return "INTERNAL_ERROR"
	}
}

// HTTPStatus maps a service error to its HTTP status.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, pairchat_errors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, pairchat_errors.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, pairchat_errors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, pairchat_errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pairchat_errors.ErrRoomFull),
		errors.Is(err, pairchat_errors.ErrSelfJoin),
		errors.Is(err, pairchat_errors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, pairchat_errors.ErrExpired):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// ErrorMessage is the stable user-facing text for a service error. The
// wrapped error chain is never exposed.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, pairchat_errors.ErrValidation):
		return pairchat_errors.ErrValidation.Error()
	case errors.Is(err, pairchat_errors.ErrAuth):
		return pairchat_errors.ErrAuth.Error()
	case errors.Is(err, pairchat_errors.ErrForbidden):
		return pairchat_errors.ErrForbidden.Error()
	case errors.Is(err, pairchat_errors.ErrNotFound):
		return pairchat_errors.ErrNotFound.Error()
	case errors.Is(err, pairchat_errors.ErrRoomFull):
		return pairchat_errors.ErrRoomFull.Error()
	case errors.Is(err, pairchat_errors.ErrSelfJoin):
		return pairchat_errors.ErrSelfJoin.Error()
	case errors.Is(err, pairchat_errors.ErrConflict):
		return pairchat_errors.ErrConflict.Error()
	case errors.Is(err, pairchat_errors.ErrExpired):
		return pairchat_errors.ErrExpired.Error()
	default:
		return "internal error"
	}
}
