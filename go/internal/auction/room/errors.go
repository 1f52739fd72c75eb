package room

import "errors"

var (
	// ErrRoomCodeMismatch is returned when a student joins with the wrong code
	ErrRoomCodeMismatch = errors.New("room code mismatch")
	// ErrAlreadyJoined is returned when a session id is already on the roster
	ErrAlreadyJoined   = errors.New("participant already joined")
	ErrInvalidRole     = errors.New("invalid role")
	ErrNotFound        = errors.New("participant not found")
	ErrInvalidDebit    = errors.New("invalid debit amount")
	ErrMissingIdentity = errors.New("participant id is required")
)
