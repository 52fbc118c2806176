package chathub

import (
	"errors"

	"chatmitra/backend/internal/session"
)

// Every error in the matching core is recoverable and local. Callers absorb
// them as guarded no-ops or neutral client events; none should ever
// terminate the process.
var (
	ErrAlreadyWaiting = errors.New("participant already in waitlist")
	ErrAlreadyInRoom  = errors.New("participant already in a room")
	ErrNotInRoom      = errors.New("participant is not a member of the room")
	ErrRoomNotFound   = errors.New("room not found")
	ErrThrottled      = errors.New("message throttled")

	// ErrSessionNotFound aliases the session store's sentinel so callers of
	// this package need only one import.
	ErrSessionNotFound = session.ErrNotFound
)
