package clock

import "time"

// SystemClock reads the wall clock in UTC. Services convert to the studio timezone.
type SystemClock struct{}

func NewSystemClock() SystemClock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now().UTC() }
