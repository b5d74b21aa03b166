package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is the package-level time source; tests freeze it with SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source behind assessment and alert timestamps. Pass nil for the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current time from the package clock.
func Now() time.Time {
	return clock.Now()
}
