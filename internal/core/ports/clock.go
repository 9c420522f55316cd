package ports

import "time"

// Clock provides time for validity-window and cache-expiry decisions.
// The engine never reads the wall clock directly, keeping validation
// deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock uses the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }
