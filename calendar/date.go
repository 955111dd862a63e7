/*
date.go - Calendar dates and times of day in the sheet wire format

PURPOSE:
  Every date that crosses the storage boundary is a DD/MM/YYYY string and
  every clock time is HH:MM or HH:MM:SS. This file owns parsing, printing
  and comparison of those values so no other package touches the raw text.

DAY GRANULARITY:
  Date carries no time of day. Two dates are equal when their calendar day
  is equal, regardless of the location they were derived from.

SEE ALSO:
  - week.go: weekday counting and week ranges
  - clock.go: "today" in the configured time zone
*/
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layout is the DD/MM/YYYY layout used by every date column.
const Layout = "02/01/2006"

// =============================================================================
// DATE
// =============================================================================

// Date is a calendar day.
type Date struct {
	t time.Time
}

// NewDate builds a date. Out-of-range fields are normalized the way
// time.Date normalizes them; use ParseDate for user input.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a DD/MM/YYYY string.
//
// A wrong separator, wrong segment count or non-numeric segment is a
// *FormatError. Well-formed text naming a day that does not exist
// (31/02/2023) is an *InvalidDateError.
func ParseDate(s string) (Date, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return Date{}, &FormatError{Kind: "date", Value: s}
	}

	fields := make([]int, 3)
	for i, p := range parts {
		maxLen := 2
		if i == 2 {
			maxLen = 4
		}
		n, ok := parseDigits(p, maxLen)
		if !ok {
			return Date{}, &FormatError{Kind: "date", Value: s}
		}
		fields[i] = n
	}
	if len(parts[2]) != 4 {
		return Date{}, &FormatError{Kind: "date", Value: s}
	}

	day, month, year := fields[0], fields[1], fields[2]
	d := NewDate(year, time.Month(month), day)
	if d.Day() != day || int(d.Month()) != month || d.Year() != year {
		return Date{}, &InvalidDateError{Value: s}
	}
	return d, nil
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(o Date) bool        { return d.t.Before(o.t) }
func (d Date) After(o Date) bool         { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool         { return d.t.Equal(o.t) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.t.After(o.t) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.t.Before(o.t) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }

// IsWeekend reports whether d is a Saturday or Sunday.
func (d Date) IsWeekend() bool {
	wd := d.t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// SameMonth reports whether d and o fall in the same month of the same year.
func (d Date) SameMonth(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month()
}

// String renders DD/MM/YYYY. The zero date renders as "".
func (d Date) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(Layout)
}

// MarshalText implements encoding.TextMarshaler so dates travel as
// DD/MM/YYYY in JSON.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// TIME OF DAY
// =============================================================================

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay accepts HH:MM or HH:MM:SS.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, &FormatError{Kind: "time", Value: s}
	}

	fields := make([]int, 3)
	for i, p := range parts {
		n, ok := parseDigits(p, 2)
		if !ok {
			return TimeOfDay{}, &FormatError{Kind: "time", Value: s}
		}
		fields[i] = n
	}

	tod := TimeOfDay{Hour: fields[0], Minute: fields[1], Second: fields[2]}
	if tod.Hour > 23 || tod.Minute > 59 || tod.Second > 59 {
		return TimeOfDay{}, &InvalidDateError{Value: s}
	}
	return tod, nil
}

// TimeOfDayOf returns the wall-clock time of t, truncated to the second.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

// String renders HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Before reports whether t is earlier in the day than o.
func (t TimeOfDay) Before(o TimeOfDay) bool {
	return t.seconds() < o.seconds()
}

func (t TimeOfDay) seconds() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

// Short renders HH:MM.
func (t TimeOfDay) Short() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func parseDigits(s string, maxLen int) (int, bool) {
	if s == "" || len(s) > maxLen {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
