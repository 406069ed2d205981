package timeutil

import "time"

// Now returns the current time in UTC
// Always use this instead of time.Now() to ensure timezone consistency
func Now() time.Time {
	return time.Now().UTC()
}

// ParseDate parses a YYYY-MM-DD day and returns its UTC midnight
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// DateIn returns the calendar day t falls on in loc, as midnight UTC.
// 02:00 UTC on the 21st is still the 20th in Caracas (UTC-4).
func DateIn(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	year, month, day := t.In(loc).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// TodayIn returns the current calendar day in loc
func TodayIn(loc *time.Location) time.Time {
	return DateIn(time.Now(), loc)
}
