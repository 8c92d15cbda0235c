package memberrepo

import (
	"context"
	"time"

	"github.com/studiofit/frontdesk-api/internal/domain"
)

// Member is the persistence shape used by the member repository.
// It's used as an internal record, not an HTTP DTO.
type Member struct {
	ID       domain.MemberID
	FullName string
	// NationalID holds exactly 11 digits.
	NationalID string
	// Email is stored normalized (trimmed, lowercase).
	Email string

	FeeDueDay       int
	PaidFlag        bool
	LastPaymentDate *domain.Date

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted members.
//
// NationalID and Email are unique keys; Create and Update report collisions with
// ErrNationalIDTaken / ErrEmailTaken rather than a generic error.
type Repository interface {
	Create(ctx context.Context, m Member) error
	Update(ctx context.Context, m Member) error

	GetByID(ctx context.Context, id domain.MemberID) (Member, error)

	// FindByNationalID looks up by the normalized 11-digit id. ErrNotFound when absent.
	FindByNationalID(ctx context.Context, nationalID string) (Member, error)
	// FindByEmail looks up by normalized email. ErrNotFound when absent.
	FindByEmail(ctx context.Context, email string) (Member, error)
}
