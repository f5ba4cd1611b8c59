package services

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// storageTime normalizes a clock reading to the UTC whole-second precision
// every supported driver stores and compares consistently.
func storageTime(c Clock) time.Time {
	return c.Now().UTC().Truncate(time.Second)
}
