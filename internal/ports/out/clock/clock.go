package clock

import "time"

// Clock is the only source of "now" for check-in dating, billing references and
// waitlist timestamps.
type Clock interface {
	Now() time.Time
}
