package shared

import "time"

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// CalendarDate returns the calendar day of t as observed in loc, expressed as
// midnight UTC. Every business date (trip date, invoice date, due date) is
// stored in this form so that two dates can be compared by value.
func CalendarDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameCalendarDate reports whether two normalized dates fall on the same day
func SameCalendarDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// ParseCalendarDate parses a YYYY-MM-DD string into a normalized date
func ParseCalendarDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, NewValidationError("invalid date, expected YYYY-MM-DD")
	}
	return t, nil
}
