package waitlistrepo

import "errors"

var (
	ErrNotFound = errors.New("waitlist entry not found")

	// ErrNotWaiting indicates the entry left the queue (enrolled or removed) before the mutation.
	ErrNotWaiting = errors.New("waitlist entry is not waiting")

	// ErrAlreadyWaiting indicates a waiting entry already exists for the email.
	ErrAlreadyWaiting = errors.New("email already waiting")
)
