package domain

import "time"

type WaitlistStatus string

const (
	WaitlistStatusWaiting  WaitlistStatus = "waiting"
	WaitlistStatusEnrolled WaitlistStatus = "enrolled"
	// WaitlistStatusRemoved marks an entry withdrawn from the queue. It is kept so a
	// repeated removal or promotion reports the entry as no longer waiting.
	WaitlistStatusRemoved WaitlistStatus = "removed"
)

type Shift string

const (
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
	ShiftEvening   Shift = "evening"
)

// WaitlistEntry is a prospective member waiting for a free slot.
//
// Position is meaningful only while Status is waiting; enrolled and removed entries carry 0.
type WaitlistEntry struct {
	ID             WaitlistEntryID
	FullName       string
	Email          string
	Phone          string
	PreferredShift Shift
	Goal           string
	HealthNotes    *string

	Position int
	Status   WaitlistStatus

	CreatedAt        time.Time
	EnrolledAt       *time.Time
	EnrolledMemberID *MemberID
}
