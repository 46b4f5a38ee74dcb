package pairchat_errors

import "errors"

// Common errors
var (
	ErrValidation = errors.New("invalid input")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrAuth       = errors.New("unauthorized")
	ErrExpired    = errors.New("room expired")
	ErrRoomFull   = errors.New("room already has a joiner")
	ErrSelfJoin   = errors.New("cannot join your own room")
	ErrInternal   = errors.New("internal error")
)
