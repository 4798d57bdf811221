// Package timezone provides timezone utilities for the scheduling bridge.
//
// Event timestamps arrive either as RFC 3339 instants or as bare calendar
// dates; this package tells the two apart and maps instants onto the
// caller's calendar day.
package timezone

import (
	"fmt"
	"strings"
	"time"
)

// UTC is the coordinated universal time timezone
var UTC = time.UTC

const (
	// DateLayout is the layout of a date-only value ("2025-06-01").
	DateLayout = "2006-01-02"
	// LabelLayout is the layout of a day header in the upcoming list.
	LabelLayout = "Monday, Jan 2"
)

// ParseTimezone parses an IANA timezone identifier (e.g., "Asia/Kolkata").
// If the timezone is invalid, returns UTC and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	if tz == "" || tz == "UTC" {
		return UTC, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return UTC, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	return loc, nil
}

// IsValidTimezone checks if a timezone identifier is valid.
func IsValidTimezone(tz string) bool {
	_, err := ParseTimezone(tz)
	return err == nil
}

// IsDateOnly reports whether v is a bare calendar date with no time of day.
func IsDateOnly(v string) bool {
	v = strings.TrimSpace(v)
	if len(v) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, v)
	return err == nil
}

// ParseInstant parses an RFC 3339 timestamp, tolerating a missing offset
// (interpreted in loc).
func ParseInstant(v string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = UTC
	}
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", v)
}

// CalendarDay returns the civil date v falls on in loc. Date-only values are
// returned as-is since they carry no zone.
func CalendarDay(v string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = UTC
	}
	if IsDateOnly(v) {
		d, _ := time.ParseInLocation(DateLayout, strings.TrimSpace(v), loc)
		return d, true
	}
	t, err := ParseInstant(v, loc)
	if err != nil {
		return time.Time{}, false
	}
	return StartOfDay(t, loc), true
}

// DayLabel formats the calendar day of v in loc as a header label.
// Returns "" when v cannot be parsed.
func DayLabel(v string, loc *time.Location) string {
	day, ok := CalendarDay(v, loc)
	if !ok {
		return ""
	}
	return day.Format(LabelLayout)
}

// StartOfDay returns the start of the day (00:00:00) in the given timezone.
func StartOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	t = t.In(tz)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, tz)
}

// NowInTimezone returns the current time in the given timezone.
func NowInTimezone(tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	return time.Now().In(tz)
}
