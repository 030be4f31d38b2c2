// Package weekly buckets timestamps into ISO-8601 weeks and decides whether a
// once-per-week action may run.
//
// Weeks run Monday 00:00 to Sunday 23:59:59.999999999 in the location passed to
// Of. The week number and the Monday bounds come from the same ISO calendar, so
// a timestamp in late December that belongs to week 1 of the next year gets that
// year's week 1 bounds.
package weekly

import (
	"fmt"
	"time"
)

// Week identifies one ISO-8601 calendar week.
type Week struct {
	Year   int
	Number int
	// Start is Monday 00:00 of the week in the location it was computed in.
	Start time.Time
}

// Of returns the ISO week containing t, evaluated in loc.
func Of(t time.Time, loc *time.Location) Week {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	year, number := local.ISOWeek()
	// Monday=0 .. Sunday=6
	offset := (int(local.Weekday()) + 6) % 7
	start := time.Date(local.Year(), local.Month(), local.Day()-offset, 0, 0, 0, 0, loc)
	return Week{Year: year, Number: number, Start: start}
}

// Key renders the week as YYYY-Www, e.g. 2026-W42.
func (w Week) Key() string {
	return fmt.Sprintf("%04d-W%02d", w.Year, w.Number)
}

// End is the last instant of the week (Sunday 23:59:59.999999999).
func (w Week) End() time.Time {
	return w.Next().Add(-time.Nanosecond)
}

// Next is Monday 00:00 of the following week. Calendar arithmetic keeps it at
// local midnight across DST changes.
func (w Week) Next() time.Time {
	return time.Date(w.Start.Year(), w.Start.Month(), w.Start.Day()+7, 0, 0, 0, 0, w.Start.Location())
}

// Contains reports whether t falls inside the week.
func (w Week) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.Next())
}

// ParseKey parses a YYYY-Www key.
func ParseKey(key string) (year, number int, err error) {
	if _, err := fmt.Sscanf(key, "%04d-W%02d", &year, &number); err != nil {
		return 0, 0, fmt.Errorf("invalid week key %q: %w", key, err)
	}
	if number < 1 || number > 53 {
		return 0, 0, fmt.Errorf("invalid week key %q: week out of range", key)
	}
	return year, number, nil
}
