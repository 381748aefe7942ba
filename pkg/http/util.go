package http

import xutil "RiskPulse/pkg/util"

// ParseTimeRange reads optional from/to values (RFC3339 or unix). Unparseable
// values yield ok=false.
func ParseTimeRange(from, to string) (TimeRange, bool) {
	var r TimeRange
	if from != "" {
		t, ok := xutil.ParseTime(from)
		if !ok {
			return r, false
		}
		r.From = &t
	}
	if to != "" {
		t, ok := xutil.ParseTime(to)
		if !ok {
			return r, false
		}
		r.To = &t
	}
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return r, false
	}
	return r, true
}
