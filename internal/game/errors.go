package game

import "errors"

var (
	// ErrSessionNotFound is returned when the referenced session does not
	// exist in the shared store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrIllegalMove is returned when a move fails validation. Nothing is
	// mutated and no event is published.
	ErrIllegalMove = errors.New("illegal move")
)
