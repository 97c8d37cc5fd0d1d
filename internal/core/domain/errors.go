package domain

import "errors"

// Sentinel errors shared by every layer. Wrap them with a descriptive
// message and test with errors.Is.
var (
	// ErrNotFound means the referenced ticket, hold, trip, stop or passenger does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidSegment means a zero, negative or cross-route segment was requested.
	ErrInvalidSegment = errors.New("invalid segment")

	// ErrInvalidInput means a request argument is malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSeatUnavailable means the segment overlaps a ticket already on the seat.
	ErrSeatUnavailable = errors.New("seat unavailable")

	// ErrInvalidState means the operation is not legal for the entity's current status.
	ErrInvalidState = errors.New("invalid state")

	// ErrStoreUnavailable is a transient store failure; callers may retry with backoff.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Retryable reports whether err is worth retrying unchanged.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
