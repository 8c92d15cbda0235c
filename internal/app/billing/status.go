// Package billing computes a member's fee standing on a given date.
//
// Everything here is a pure function of its inputs: the reference date is always
// supplied by the caller and the clock is never read.
package billing

import (
	"time"

	"github.com/studiofit/frontdesk-api/internal/domain"
)

// Terms are the billing facts of one member.
type Terms struct {
	FeeDueDay       int
	PaidFlag        bool
	LastPaymentDate *domain.Date
}

// Standing is the outcome of Compute.
type Standing struct {
	UpToDate    bool
	DaysOverdue int
	// DueDate is the most recent due date on or before the reference date.
	DueDate domain.Date
}

// TermsOf extracts the billing fields of m.
func TermsOf(m domain.Member) Terms {
	return Terms{
		FeeDueDay:       m.FeeDueDay,
		PaidFlag:        m.PaidFlag,
		LastPaymentDate: m.LastPaymentDate,
	}
}

// Compute returns the standing of t as of ref.
func Compute(t Terms, ref domain.Date) Standing {
	due := MostRecentDueDate(t.FeeDueDay, ref)

	if t.PaidFlag && t.LastPaymentDate != nil && !t.LastPaymentDate.Before(due) {
		return Standing{UpToDate: true, DaysOverdue: 0, DueDate: due}
	}

	overdue := ref.DaysSince(due)
	if overdue < 0 {
		overdue = 0
	}
	return Standing{
		UpToDate:    overdue == 0 && t.PaidFlag,
		DaysOverdue: overdue,
		DueDate:     due,
	}
}

// MostRecentDueDate returns the latest occurrence of dueDay that is on or before ref.
// In months shorter than dueDay the fee falls due on the month's last day.
// The clamp applies to ref's own month too: dueDay 31 with ref April 30 falls
// due April 30, not March 31.
func MostRecentDueDate(dueDay int, ref domain.Date) domain.Date {
	if dueDay < 1 {
		dueDay = 1
	}
	current := domain.Date{Year: ref.Year, Month: ref.Month, Day: clampDay(dueDay, ref.Year, ref.Month)}
	if ref.Day >= current.Day {
		return current
	}

	year, month := ref.Year, ref.Month-1
	if month < 1 {
		month = 12
		year--
	}
	return domain.Date{Year: year, Month: month, Day: clampDay(dueDay, year, month)}
}

func clampDay(day, year int, month time.Month) int {
	if n := domain.DaysIn(year, month); day > n {
		return n
	}
	return day
}
