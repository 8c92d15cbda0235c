package memberrepo

import "errors"

var (
	// ErrNotFound indicates the requested member does not exist.
	ErrNotFound = errors.New("member not found")

	// ErrAlreadyExists indicates a member already exists with the provided ID.
	ErrAlreadyExists = errors.New("member already exists")

	// ErrNationalIDTaken indicates another member already holds the national id.
	ErrNationalIDTaken = errors.New("member national id already in use")

	// ErrEmailTaken indicates another member already holds the email address.
	ErrEmailTaken = errors.New("member email already in use")
)
