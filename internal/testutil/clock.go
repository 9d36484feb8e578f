package testutil

import (
	"sync"
	"time"
)

// StepClock is a deterministic clock for throughput tests.
//
// Every call to Now advances the clock by Step, so a call measured between
// two Now calls always lasts exactly Step.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

// NewStepClock creates a clock starting at a fixed instant.
func NewStepClock(step time.Duration) *StepClock {
	return &StepClock{
		now:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Step: step,
	}
}

// Now returns the current instant and advances the clock.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.Step)
	return t
}

// Calls returns how many times Now has been called.
func (c *StepClock) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Step == 0 {
		return 0
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return int(c.now.Sub(start) / c.Step)
}
