package domain

import "time"

// CheckInMethod records which identifier resolved the member at the desk.
type CheckInMethod string

const (
	CheckInMethodNationalID CheckInMethod = "national_id"
	CheckInMethodEmail      CheckInMethod = "email"
)

// PerformedBySelf marks a check-in made by the member at a kiosk.
const PerformedBySelf = "self"

// CheckInRecord is one accepted visit. Records are append-only.
type CheckInRecord struct {
	ID       CheckInID
	MemberID MemberID

	// VisitDate is the studio-local calendar date of the visit.
	VisitDate      Date
	VisitTimestamp time.Time

	Method      CheckInMethod
	PerformedBy string
	Notes       *string
}
