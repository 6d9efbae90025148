package testfixtures

import (
	"sync"
	"time"

	"github.com/example/equipment-booking/internal/calendar"
)

// Clock provides a controllable time source for tests. Calendar days are
// read in the clock's location.
type Clock struct {
	mu       sync.Mutex
	current  time.Time
	location *time.Location
}

// NewClock returns a clock initialised to start. When start is the zero value,
// ReferenceTime is used. The clock's location is the location of start.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start, location: start.Location()}
}

// Now returns the current instant tracked by the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc exposes Now as a function suitable for dependency injection.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Location returns the zone calendar days are interpreted in.
func (c *Clock) Location() *time.Location {
	return c.location
}

// Today returns the current calendar day.
func (c *Clock) Today() calendar.Day {
	return calendar.Today(c.Now(), c.location)
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// SetLocal moves the clock to minutes past midnight on day.
func (c *Clock) SetLocal(day calendar.Day, minutes int) {
	c.Set(day.At(minutes, c.location))
}

// Advance moves the clock forward by d and returns the updated time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	c.current = c.current.Add(d)
	updated := c.current
	c.mu.Unlock()
	return updated
}
