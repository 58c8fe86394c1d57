package store

import "errors"

var (
	// ErrNotFound is returned when a record does not exist under its key.
	ErrNotFound = errors.New("record not found")

	// ErrCorruptRecord is returned when a stored value fails schema
	// validation on read. The record is never silently repaired.
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrQueueEmpty is returned by PopWaiting when no user is queued.
	ErrQueueEmpty = errors.New("waiting queue empty")

	// ErrConflict is returned when an optimistic update exhausted its
	// retries against concurrent writers.
	ErrConflict = errors.New("too many concurrent update conflicts")

	// ErrNoChange aborts an optimistic update without writing. Mutation
	// callbacks return it when their guard condition does not hold; the
	// update surfaces it with the unmodified record so callers can treat
	// the operation as a silent no-op.
	ErrNoChange = errors.New("no change")
)
