package events

import (
	"context"
	"time"
)

type Type string

const (
	TypeCheckInRecorded  Type = "checkin.recorded"
	TypeWaitlistJoined   Type = "waitlist.joined"
	TypeWaitlistEnrolled Type = "waitlist.enrolled"
	TypeWaitlistRemoved  Type = "waitlist.removed"
)

// Event is a domain fact published after it has been persisted.
type Event struct {
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// Publisher delivers events to downstream consumers (welcome emails, dashboards).
// Publishing is best-effort: callers log failures and never undo the persisted change.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
