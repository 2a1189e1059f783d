package session

import "errors"

var (
	// ErrStopped reports that Stop was called while the session was still
	// connecting. The session never became active; this is not a failure.
	ErrStopped = errors.New("session stopped before start completed")

	// ErrStartInProgress reports that another Start won the race for the
	// controller.
	ErrStartInProgress = errors.New("another session start is in progress")
)
