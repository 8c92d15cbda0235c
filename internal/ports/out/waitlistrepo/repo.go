package waitlistrepo

import (
	"context"
	"time"

	"github.com/studiofit/frontdesk-api/internal/domain"
)

type Entry struct {
	ID             domain.WaitlistEntryID
	FullName       string
	Email          string
	Phone          string
	PreferredShift domain.Shift
	Goal           string
	HealthNotes    *string

	// Position is 0 for entries that are not waiting.
	Position int
	Status   domain.WaitlistStatus

	CreatedAt        time.Time
	EnrolledAt       *time.Time
	EnrolledMemberID *domain.MemberID
}

// Enrollment carries the fields written when a waiting entry becomes a member.
type Enrollment struct {
	Status     domain.WaitlistStatus
	EnrolledAt time.Time
	MemberID   domain.MemberID
}

// Repository persists the waiting list.
//
// Mutations are atomic: position assignment in Append and the renumbering in
// UpdateStatusAndRenumber / DeleteAndRenumber happen under the same serialization
// guarantee, so waiting positions always form 1..N.
type Repository interface {
	// MaxPosition returns the highest position among waiting entries, or 0.
	MaxPosition(ctx context.Context) (int, error)

	// Append stores e as waiting at position MaxPosition()+1 and returns the stored entry.
	// The caller's Position and Status are ignored.
	Append(ctx context.Context, e Entry) (Entry, error)

	Get(ctx context.Context, id domain.WaitlistEntryID) (Entry, error)

	// List returns entries with the given status. Waiting entries are ordered by position;
	// enrolled entries by EnrolledAt ascending. An empty status lists waiting and enrolled
	// entries, waiting first; removed entries appear only when asked for by status.
	List(ctx context.Context, status domain.WaitlistStatus) ([]Entry, error)

	// UpdateStatusAndRenumber moves a waiting entry out of the queue and decrements the
	// position of every waiting entry behind it. ErrNotWaiting if it is no longer waiting.
	UpdateStatusAndRenumber(ctx context.Context, id domain.WaitlistEntryID, change Enrollment) (Entry, error)

	// DeleteAndRenumber takes a waiting entry out of the queue with the same renumbering.
	// The entry stays stored with status removed and position 0, so Get still finds it and
	// later mutations return ErrNotWaiting.
	DeleteAndRenumber(ctx context.Context, id domain.WaitlistEntryID) error
}
