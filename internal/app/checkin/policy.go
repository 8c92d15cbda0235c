package checkin

import (
	"fmt"
	"time"
)

// Policy selects the grace tolerance applied by the billing gate.
type Policy string

const (
	// PolicySelfService is used by the kiosk. The member must be fully up to date.
	PolicySelfService Policy = "self_service"
	// PolicyAssistedByStaff lets staff admit members a few days behind on their fee.
	PolicyAssistedByStaff Policy = "assisted_by_staff"
)

// Config holds the studio parameters; cmd/api fills it from config.StudioConfig.
type Config struct {
	// Location is the studio's timezone. Weekday and daily uniqueness use its calendar date.
	Location *time.Location

	SelfServiceGraceDays int
	AssistedGraceDays    int
}

func (c Config) tolerance(p Policy) (int, error) {
	switch p {
	case PolicySelfService:
		return c.SelfServiceGraceDays, nil
	case PolicyAssistedByStaff:
		return c.AssistedGraceDays, nil
	default:
		return 0, fmt.Errorf("unknown grace policy %q", p)
	}
}

// withinTolerance reports whether the billing gate lets the visit through.
func withinTolerance(upToDate bool, daysOverdue, tolerance int) bool {
	if upToDate {
		return true
	}
	return tolerance > 0 && daysOverdue <= tolerance
}

// daysUntilMonday is the offset from a weekend day to the following Monday.
func daysUntilMonday(wd time.Weekday) int {
	switch wd {
	case time.Saturday:
		return 2
	case time.Sunday:
		return 1
	default:
		return 0
	}
}
