package calendar

import "time"

// WeekMode selects which days WeekRange returns.
type WeekMode int

const (
	// Weekdays is Monday to Friday.
	Weekdays WeekMode = iota
	// FullWeek is Monday to Sunday.
	FullWeek
)

// WeekdayCount returns the number of Monday-to-Friday days in the
// inclusive range [from, to]. A reversed range counts as zero.
func WeekdayCount(from, to Date) int {
	if to.Before(from) {
		return 0
	}

	days := int(to.t.Sub(from.t).Hours()/24) + 1
	full, rest := days/7, days%7

	count := full * 5
	d := from.AddDays(full * 7)
	for i := 0; i < rest; i++ {
		if !d.IsWeekend() {
			count++
		}
		d = d.AddDays(1)
	}
	return count
}

// WeekRange returns the days of the Monday-starting week containing d.
func WeekRange(d Date, mode WeekMode) []Date {
	offset := int(d.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	monday := d.AddDays(-offset)

	n := 5
	if mode == FullWeek {
		n = 7
	}
	week := make([]Date, n)
	for i := range week {
		week[i] = monday.AddDays(i)
	}
	return week
}
