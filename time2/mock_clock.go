package time2

import (
	"sync"
	"time"
)

// A fake clock useful for testing timing.
type MockClock struct {
	mu          sync.Mutex
	currentTime time.Time
}

// Resets the mock clock back to initial state.
func (c *MockClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = time.Time{}
}

// Set the mock clock to a specific time.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = t
}

// Advances the mock clock by the specified duration.
func (c *MockClock) Advance(delta time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = c.currentTime.Add(delta)
}

// Returns the fake current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTime
}

// Returns the time elapsed since the fake current time.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// StepClock is a fake clock which moves forward by Step every time Now is
// read.  Since does not advance the clock.
type StepClock struct {
	Step time.Duration

	mu    sync.Mutex
	reads int64
	now   time.Time
}

func NewStepClock(step time.Duration) *StepClock {
	return &StepClock{Step: step}
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.Step)
	c.reads++
	return c.now
}

func (c *StepClock) Since(t time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(t)
}

// Number of times Now has been called.
func (c *StepClock) Reads() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}
