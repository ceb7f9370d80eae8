package common

import (
	"time"
)

// isoLayout renders second precision with the numeric zone offset, matching
// the timestamps stored on events.
const isoLayout = "2006-01-02T15:04:05-07:00"

// FormatISO renders t as a zoned ISO-8601 string.
func FormatISO(t time.Time) string {
	return t.Format(isoLayout)
}

// ISONow returns the current wall clock in loc as a zoned ISO-8601 string.
func ISONow(loc *time.Location) string {
	return FormatISO(time.Now().In(loc))
}

// DayWindow computes the [day 00:00, day+1 00:00) window for a YYYY-MM-DD day
// in loc, as zoned ISO strings.
func DayWindow(day string, loc *time.Location) (after, before string, err error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return "", "", ValidationError("invalid day %q, expected YYYY-MM-DD", day)
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return FormatISO(start), FormatISO(end), nil
}
