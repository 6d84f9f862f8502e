package core

import "time"

// Clock measures elapsed seconds since Start. The zero value is a stopped clock.
type Clock struct {
	now       func() time.Time
	startTime time.Time
	elapsed   float64
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Updates the provided clock. Should be called just before checking elapsed time.
// Has no effect on non-started clocks.
func (c *Clock) Update() {
	if !c.startTime.IsZero() {
		c.elapsed = c.clockNow().Sub(c.startTime).Seconds()
	}
}

// Starts the provided clock. Resets elapsed time.
func (c *Clock) Start() {
	c.startTime = c.clockNow()
	c.elapsed = 0
}

// Stops the provided clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.startTime = time.Time{}
}

// Elapsed returns the seconds measured by the last Update.
func (c *Clock) Elapsed() float64 {
	return c.elapsed
}

func (c *Clock) clockNow() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}
