package core

import "errors"

// Error taxonomy shared by every component. Adapters translate these into
// a response or a silent drop; they never escape as unhandled faults.
var (
	ErrAuthRequired       = errors.New("authentication required")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrNotAParticipant    = errors.New("not a participant")
	ErrInvalidTransition  = errors.New("invalid call state transition")
	ErrNotFound           = errors.New("no live session for room")
)
