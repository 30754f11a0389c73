package lifecycle

import "time"

// Clock supplies the current time. Production code uses RealClock; tests
// inject a stub so boundary instants can be pinned.
type Clock interface {
	Now() time.Time
}

// RealClock returns the wall clock in UTC.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }
