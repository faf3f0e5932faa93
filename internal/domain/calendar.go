package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date form used for every date key.
const DateLayout = "2006-01-02"

// Calendar is an ordered, gap-free sequence of calendar dates, inclusive of
// both ends. Dates are held as midnight UTC so that adding a day never
// crosses a DST boundary.
type Calendar struct {
	dates []time.Time
}

// NewCalendar returns every date from start to end, one per day.
func NewCalendar(start, end time.Time) (Calendar, error) {
	start, end = civilDate(start), civilDate(end)
	if start.After(end) {
		return Calendar{}, &InvalidRangeError{Start: start, End: end}
	}

	dates := make([]time.Time, 0, daysBetween(start, end)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return Calendar{dates: dates}, nil
}

// Len returns the number of dates.
func (c Calendar) Len() int { return len(c.dates) }

// Start returns the first date.
func (c Calendar) Start() time.Time { return c.dates[0] }

// End returns the last date.
func (c Calendar) End() time.Time { return c.dates[len(c.dates)-1] }

// Date returns the i-th date.
func (c Calendar) Date(i int) time.Time { return c.dates[i] }

// Index returns the position of d in the calendar.
func (c Calendar) Index(d time.Time) (int, bool) {
	if len(c.dates) == 0 {
		return 0, false
	}
	i := daysBetween(c.dates[0], civilDate(d))
	if i < 0 || i >= len(c.dates) {
		return 0, false
	}
	return i, true
}

// Contains reports whether d falls inside the calendar.
func (c Calendar) Contains(d time.Time) bool {
	_, ok := c.Index(d)
	return ok
}

// Equal reports whether both calendars cover the same dates.
func (c Calendar) Equal(other Calendar) bool {
	if c.Len() != other.Len() {
		return false
	}
	return c.Len() == 0 || c.Start().Equal(other.Start())
}

// Strings returns the dates in ISO form.
func (c Calendar) Strings() []string {
	out := make([]string, len(c.dates))
	for i, d := range c.dates {
		out[i] = FormatDate(d)
	}
	return out
}

// ParseDate parses an ISO calendar date. Timestamps are accepted and
// truncated to their date part, e.g. "2021-05-03T10:00:00+03:00".
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) && (s[len(DateLayout)] == 'T' || s[len(DateLayout)] == ' ') {
		s = s[:len(DateLayout)]
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}

// FormatDate renders d as an ISO calendar date.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// Yesterday returns the calendar date before now, as observed in loc.
func Yesterday(now time.Time, loc *time.Location) time.Time {
	return civilDate(now.In(loc)).AddDate(0, 0, -1)
}

// civilDate keeps the wall-clock year, month and day of t at midnight UTC.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
