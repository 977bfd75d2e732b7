// Package calendar holds the weekly-grid date math shared by the booking engines.
package calendar

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// DateLayout is the wire format for calendar dates.
	DateLayout = "2006-01-02"
	// TimeLayout is the wire format for time-of-day values.
	TimeLayout = "15:04:05"
)

// Weekday keys used by availability payloads, Monday first.
const (
	Monday    = "mon"
	Tuesday   = "tue"
	Wednesday = "wed"
	Thursday  = "thu"
	Friday    = "fri"
	Saturday  = "sat"
	Sunday    = "sun"
)

// WeekdayKeys lists the availability keys in week order.
var WeekdayKeys = []string{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseDate parses a YYYY-MM-DD date at midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return d, nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateOnly truncates t to midnight in UTC keeping its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Monday of the week containing date.
func WeekStart(date time.Time) time.Time {
	d := DateOnly(date)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// IsMonday reports whether date falls on a Monday.
func IsMonday(date time.Time) bool {
	return date.Weekday() == time.Monday
}

// WeekdayKey maps a date to its availability key.
func WeekdayKey(date time.Time) string {
	return WeekdayKeys[(int(date.Weekday())+6)%7]
}

// WeekOffset returns the number of weeks between the weeks containing current and target,
// rounded to the nearest integer.
func WeekOffset(target, current time.Time) int {
	days := WeekStart(target).Sub(WeekStart(current)).Hours() / 24
	return int(math.Round(days / 7))
}

// ClockTime is a time of day with second precision.
type ClockTime struct {
	Seconds int
}

// ParseClock parses HH:MM or HH:MM:SS.
func ParseClock(raw string) (ClockTime, error) {
	raw = strings.TrimSpace(raw)
	layouts := []string{TimeLayout, "15:04"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return ClockTime{Seconds: t.Hour()*3600 + t.Minute()*60 + t.Second()}, nil
		}
	}
	return ClockTime{}, fmt.Errorf("invalid time %q: expected HH:MM:SS", raw)
}

// MustClock parses raw and panics on malformed input; intended for constants and tests.
func MustClock(raw string) ClockTime {
	c, err := ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// String renders HH:MM:SS.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Seconds/3600, (c.Seconds%3600)/60, c.Seconds%60)
}

// Before reports whether c is strictly earlier than other.
func (c ClockTime) Before(other ClockTime) bool {
	return c.Seconds < other.Seconds
}

// On combines the clock time with a calendar date in loc.
func (c ClockTime) On(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Add(time.Duration(c.Seconds) * time.Second)
}

// Overlaps applies half-open [start,end) semantics: touching intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd ClockTime) bool {
	return !(aEnd.Seconds <= bStart.Seconds || bEnd.Seconds <= aStart.Seconds)
}

// Contains reports whether [inner] lies fully inside [outer], bounds inclusive.
func Contains(outerStart, outerEnd, innerStart, innerEnd ClockTime) bool {
	return outerStart.Seconds <= innerStart.Seconds && innerEnd.Seconds <= outerEnd.Seconds
}
