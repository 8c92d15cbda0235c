package checkin

import (
	"fmt"

	"github.com/studiofit/frontdesk-api/internal/domain"
)

type Outcome string

const (
	OutcomeAllowed Outcome = "allowed"
	OutcomeDenied  Outcome = "denied"
)

// Reason is why a check-in was denied.
type Reason string

const (
	ReasonIdentifierNotRecognized Reason = "IDENTIFIER_NOT_RECOGNIZED"
	ReasonStudioClosedWeekend     Reason = "STUDIO_CLOSED_WEEKEND"
	ReasonAlreadyCheckedInToday   Reason = "ALREADY_CHECKED_IN_TODAY"
	ReasonPaymentOverdue          Reason = "PAYMENT_OVERDUE"
)

// Identifier failure details carried by ReasonIdentifierNotRecognized.
const (
	DetailInvalidFormat = "INVALID_FORMAT"
	DetailNotFound      = "NOT_FOUND"
)

// Denial is a terminal business outcome. Only the fields relevant to Reason are set.
type Denial struct {
	Reason Reason
	Detail string

	DaysOverdue  int
	NextOpenDate *domain.Date
}

// Message is the sentence shown to the member at the desk.
func (d Denial) Message() string {
	switch d.Reason {
	case ReasonIdentifierNotRecognized:
		if d.Detail == DetailInvalidFormat {
			return "Enter an 11-digit CPF or the email address you registered with."
		}
		return "We could not find a member with that CPF or email. Please check with the front desk."
	case ReasonStudioClosedWeekend:
		if d.NextOpenDate != nil {
			return fmt.Sprintf("The studio is closed on weekends. Next available day: Monday %s.", d.NextOpenDate)
		}
		return "The studio is closed on weekends."
	case ReasonAlreadyCheckedInToday:
		return "You have already checked in today."
	case ReasonPaymentOverdue:
		if d.DaysOverdue == 1 {
			return "Your monthly fee is 1 day overdue. Please settle it at the front desk."
		}
		return fmt.Sprintf("Your monthly fee is %d days overdue. Please settle it at the front desk.", d.DaysOverdue)
	default:
		return "Check-in was not allowed."
	}
}

// Decision is either Allowed with the stored Record, or Denied with a Denial.
type Decision struct {
	Outcome Outcome
	Record  *domain.CheckInRecord
	Denial  *Denial
}

func (d Decision) Allowed() bool { return d.Outcome == OutcomeAllowed }

func allowed(r domain.CheckInRecord) Decision {
	return Decision{Outcome: OutcomeAllowed, Record: &r}
}

func denied(d Denial) Decision {
	return Decision{Outcome: OutcomeDenied, Denial: &d}
}
