package domain

import "time"

// Member is the domain representation of a studio member, limited to the identity and
// billing facts the front desk needs.
type Member struct {
	ID       MemberID
	FullName string

	// NationalID is the 11-digit CPF, digits only.
	NationalID string
	// Email is stored lowercased.
	Email string

	// FeeDueDay is the day of month (1-31) the monthly fee is due.
	FeeDueDay int
	// PaidFlag reports whether the current billing cycle has been marked paid.
	PaidFlag        bool
	LastPaymentDate *Date

	CreatedAt time.Time
	UpdatedAt time.Time
}
