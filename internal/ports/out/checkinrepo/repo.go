package checkinrepo

import (
	"context"
	"time"

	"github.com/studiofit/frontdesk-api/internal/domain"
)

type Record struct {
	ID       domain.CheckInID
	MemberID domain.MemberID

	VisitDate      domain.Date
	VisitTimestamp time.Time

	Method      domain.CheckInMethod
	PerformedBy string
	Notes       *string
}

// Repository persists accepted visits. Records are never updated or deleted.
//
// Implementations must enforce uniqueness of (MemberID, VisitDate) themselves: Insert
// returns ErrDuplicate when the pair exists, even when a concurrent Insert won the race.
type Repository interface {
	ExistsForDate(ctx context.Context, memberID domain.MemberID, date domain.Date) (bool, error)
	Insert(ctx context.Context, r Record) (Record, error)

	// ListByMember returns a member's visits with from <= VisitDate <= to, newest first.
	// A zero from or to leaves that side open.
	ListByMember(ctx context.Context, memberID domain.MemberID, from, to domain.Date) ([]Record, error)
	// ListByDate returns all visits on the date ordered by VisitTimestamp ascending.
	ListByDate(ctx context.Context, date domain.Date) ([]Record, error)
}
