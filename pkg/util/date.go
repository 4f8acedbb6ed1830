package util

import (
    "strconv"
    "strings"
    "time"
)

var dateLayouts = []string{
    time.DateOnly,
    time.RFC3339,
    time.RFC3339Nano,
    time.DateTime,
    "2006/01/02",
    "01/02/2006",
}

// ParseTime tries the common date layouts found in price exports, then unix seconds.
// Returns (t, true) if any worked. Results are UTC.
func ParseTime(s string) (time.Time, bool) {
    s = strings.TrimSpace(s)
    if s == "" {
        return time.Time{}, false
    }
    for _, layout := range dateLayouts {
        if t, err := time.Parse(layout, s); err == nil {
            return t.UTC(), true
        }
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0).UTC(), true
    }
    return time.Time{}, false
}

// TruncateDay drops the clock part, keeping the calendar day in t's location.
func TruncateDay(t time.Time) time.Time {
    y, m, d := t.Date()
    return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// BusinessCalendar skips weekends and an optional set of holidays.
type BusinessCalendar struct {
    holidays map[string]struct{}
}

// NewBusinessCalendar builds a calendar; holidays are YYYY-MM-DD strings,
// unparsable entries are ignored.
func NewBusinessCalendar(holidays ...string) *BusinessCalendar {
    c := &BusinessCalendar{holidays: make(map[string]struct{}, len(holidays))}
    for _, h := range holidays {
        if t, ok := ParseTime(h); ok {
            c.holidays[t.Format(time.DateOnly)] = struct{}{}
        }
    }
    return c
}

// IsBusinessDay reports whether t falls on a weekday that is not a holiday.
func (c *BusinessCalendar) IsBusinessDay(t time.Time) bool {
    switch t.Weekday() {
    case time.Saturday, time.Sunday:
        return false
    }
    _, holiday := c.holidays[t.Format(time.DateOnly)]
    return !holiday
}

// NextBusinessDays returns count consecutive business days strictly after start.
func (c *BusinessCalendar) NextBusinessDays(start time.Time, count int) []time.Time {
    if count <= 0 {
        return nil
    }
    out := make([]time.Time, 0, count)
    d := TruncateDay(start)
    for len(out) < count {
        d = d.AddDate(0, 0, 1)
        if c.IsBusinessDay(d) {
            out = append(out, d)
        }
    }
    return out
}
