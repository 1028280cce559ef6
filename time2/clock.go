package time2

import (
	"time"
)

// These methods are all equivalent to those provided by the time package.
// The instrumentation runtime reads time exclusively through a Clock so
// that tests can drive elapsed time.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

type realClock struct{}

func NewRealClock() Clock {
	return &realClock{}
}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func (c *realClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

var DefaultClock = NewRealClock()
