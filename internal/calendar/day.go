// Package calendar holds the date and time-of-day arithmetic shared by the
// scheduling packages. Stored dates may carry UTC instants; everything past
// this package works with local calendar days only.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// ErrInvalidDate indicates a value could not be read as a calendar day.
var ErrInvalidDate = errors.New("calendar: invalid date")

// Day is a calendar day without a time-of-day or location.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDay returns the normalized day, so NewDay(2025, 1, 32) is 2025-02-01.
func NewDay(year int, month time.Month, day int) Day {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Day{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDay reads a YYYY-MM-DD value.
func ParseDay(value string) (Day, error) {
	t, err := time.Parse(dayLayout, strings.TrimSpace(value))
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return Day{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// DayOf returns the calendar day t falls on in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	y, m, d := t.In(location(loc)).Date()
	return Day{Year: y, Month: m, Day: d}
}

// Today returns the current day in loc, i.e. now truncated to midnight.
func Today(now time.Time, loc *time.Location) Day {
	return DayOf(now, loc)
}

// localDateTimeLayouts parse timestamps that carry no zone. Such values are
// wall-clock times in the site's zone.
var localDateTimeLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04"}

// NormalizeStoredDate converts a persisted reservation date into a local day.
// Values without a time component are already calendar days. Values with one
// are instants and are converted into loc before the date is taken; an instant
// without a zone is read in loc.
func NormalizeStoredDate(raw string, loc *time.Location) (Day, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Day{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	if !strings.Contains(value, "T") {
		return ParseDay(value)
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return DayOf(t, loc), nil
	}
	for _, layout := range localDateTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, location(loc)); err == nil {
			return DayOf(t, loc), nil
		}
	}
	return Day{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

// String formats the day as YYYY-MM-DD.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MonthKey formats the day's month as YYYY-MM.
func (d Day) MonthKey() string {
	return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
}

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool {
	return d == Day{}
}

// Weekday returns the day of the week.
func (d Day) Weekday() time.Weekday {
	return d.utc().Weekday()
}

// AddDays returns d shifted by n days.
func (d Day) AddDays(n int) Day {
	return NewDay(d.Year, d.Month, d.Day+n)
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to, or after other.
func (d Day) Compare(other Day) int {
	return d.utc().Compare(other.utc())
}

// Before reports whether d is strictly before other.
func (d Day) Before(other Day) bool {
	return d.Compare(other) < 0
}

// After reports whether d is strictly after other.
func (d Day) After(other Day) bool {
	return d.Compare(other) > 0
}

// Midnight returns the first instant of d in loc.
func (d Day) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, location(loc))
}

// At returns the instant minutes past midnight of d in loc.
func (d Day) At(minutes int, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, minutes/60, minutes%60, 0, 0, location(loc))
}

// MarshalText implements encoding.TextMarshaler.
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Day) UnmarshalText(text []byte) error {
	parsed, err := ParseDay(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Day) utc() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns every day of the given month in order.
func DaysInMonth(year int, month time.Month) []Day {
	first := NewDay(year, month, 1)
	days := make([]Day, 0, 31)
	for d := first; d.Month == first.Month; d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// ParseMonth reads a YYYY-MM value.
func ParseMonth(value string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(value))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: month %q", ErrInvalidDate, value)
	}
	return t.Year(), t.Month(), nil
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
