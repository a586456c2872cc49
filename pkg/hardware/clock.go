package hardware

import (
	"sync"
	"time"
)

type systemClock struct {
	epoch time.Time
}

// NewSystemClock returns a Clock backed by the wall clock, with its epoch at the time of the call.
func NewSystemClock() Clock {
	return &systemClock{epoch: time.Now()}
}

func (c *systemClock) Elapsed() time.Duration {
	return time.Since(c.epoch)
}

func (c *systemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// StepClock is a Clock for simulation and tests.  Every call to Elapsed advances time by Step, so
// a polling loop that reads the clock makes progress without really waiting.
type StepClock struct {
	lock sync.Mutex
	now  time.Duration
	Step time.Duration
}

func NewStepClock(step time.Duration) *StepClock {
	return &StepClock{Step: step}
}

func (c *StepClock) Elapsed() time.Duration {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now += c.Step
	return c.now
}

func (c *StepClock) Sleep(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now += d
}

// Peek returns the current time without advancing it.
func (c *StepClock) Peek() time.Duration {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}
