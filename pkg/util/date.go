package util

import (
	"fmt"
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds or milliseconds.
// Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return FromUnix(ts), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// FromUnix converts unix seconds, or milliseconds when the value is too large
// to be seconds, into a UTC time.
func FromUnix(ts int64) time.Time {
	if ts > 1e11 { // ms
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}

// AlignWindow floors t to a multiple of width counted from the unix epoch.
func AlignWindow(t time.Time, width time.Duration) time.Time {
	if width <= 0 {
		return t.UTC()
	}
	ns := t.UnixNano()
	w := int64(width)
	q := ns / w
	if ns%w < 0 {
		q--
	}
	return time.Unix(0, q*w).UTC()
}

// WindowLabel renders a window start the way the dashboard axis shows it:
// "15:04" for intra-day windows, prefixed with the date for day-or-wider windows.
func WindowLabel(start time.Time, width time.Duration, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	t := start.In(loc)
	if width >= 24*time.Hour {
		return t.Format("Jan 02")
	}
	return t.Format("15:04")
}

// RelativeAge renders an elapsed duration as "2 min ago" style text.
func RelativeAge(d time.Duration) string {
	switch {
	case d < 0:
		return "just now"
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d/time.Minute))
	case d < 24*time.Hour:
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	default:
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}
