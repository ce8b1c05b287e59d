// Package clock abstracts time so lifecycle timestamps can be controlled in tests.
package clock

import "time"

// Clock is an interface for time operations.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system time, normalized to UTC
// so persisted timestamps compare cleanly across machines.
type RealClock struct{}

// Now returns the current UTC time.
func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// Func adapts a plain function to the Clock interface.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time {
	return f()
}

var (
	_ Clock = RealClock{}
	_ Clock = Func(nil)
)
