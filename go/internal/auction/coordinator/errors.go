package coordinator

import (
	"errors"

	"github.com/mcdev12/auctionroom/go/internal/auction/room"
)

// Validation errors: the bid was well-formed but loses against current state.
var (
	ErrStaleBid           = errors.New("bid does not exceed current price")
	ErrInsufficientBudget = errors.New("bid exceeds remaining budget")
)

// Precondition errors: the command does not apply right now.
var (
	ErrNotActive          = errors.New("no active round")
	ErrAlreadyActive      = errors.New("round already active")
	ErrNotTeacher         = errors.New("command requires the teacher role")
	ErrNotStudent         = errors.New("only students can bid")
	ErrUnknownParticipant = errors.New("participant not in room")
	ErrNoLeader           = errors.New("no leading bid")
	ErrSelfKick           = errors.New("teacher cannot kick themselves")
	ErrUnknownCommand     = errors.New("unknown command")
)

// ErrStopped is returned once the coordinator loop has exited
var ErrStopped = errors.New("coordinator stopped")

// ErrorClass groups command failures by how they are surfaced
type ErrorClass string

const (
	ClassNone         ErrorClass = ""
	ClassAuth         ErrorClass = "auth"
	ClassValidation   ErrorClass = "validation"
	ClassPrecondition ErrorClass = "precondition"
)

// Classify maps a command error onto its class
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, room.ErrRoomCodeMismatch):
		return ClassAuth
	case errors.Is(err, ErrStaleBid), errors.Is(err, ErrInsufficientBudget):
		return ClassValidation
	default:
		return ClassPrecondition
	}
}
