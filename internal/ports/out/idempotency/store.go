package idempotency

import (
	"context"
	"time"

	"github.com/studiofit/frontdesk-api/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// AnonymousSubject scopes keys sent by unauthenticated callers (kiosks, the public join form).
const AnonymousSubject domain.SubjectID = "anonymous"

// Retention is how long a stored response stays replayable.
const Retention = 24 * time.Hour

// Fingerprint identifies a request uniquely for idempotency purposes.
//
// Strategy: key + route + subject + request body hash.
// Route is the normalized path template (e.g. "/waitlist/{entryId}/promote").
// An empty BodyHash marks the metadata record that remembers which body a key was first used with.
type Fingerprint struct {
	Key      Key
	Subject  domain.SubjectID
	Method   string
	Route    string
	BodyHash string
}

// Record is the stored response we can replay for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records for replaying safe responses on retries.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
}
