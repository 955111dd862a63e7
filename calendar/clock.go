package calendar

import (
	"fmt"
	"time"
)

// DefaultZone is the zone the business runs in.
const DefaultZone = "Europe/Dublin"

// Clock supplies the current instant. Every "today" comparison in the
// ledgers goes through a Clock so tests can pin the date.
type Clock interface {
	Now() time.Time
}

// Today returns the calendar day of c.Now().
func Today(c Clock) Date {
	return DateOf(c.Now())
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	Location *time.Location
}

// NewSystemClock loads the named IANA zone. An empty name means DefaultZone.
func NewSystemClock(zone string) (*SystemClock, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", zone, err)
	}
	return &SystemClock{Location: loc}, nil
}

func (c *SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always reports the same instant.
type FixedClock struct {
	At time.Time
}

// FixedAt returns a clock pinned to 12:00 on d.
func FixedAt(d Date) *FixedClock {
	return &FixedClock{At: time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, time.UTC)}
}

func (c *FixedClock) Now() time.Time {
	return c.At
}
