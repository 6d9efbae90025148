package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the number of minutes between two midnights.
const MinutesPerDay = 24 * 60

// ErrInvalidClock indicates a time-of-day label is not HH:MM.
var ErrInvalidClock = errors.New("calendar: invalid time of day")

// ParseClock converts an HH:MM label into minutes since midnight.
func ParseClock(label string) (int, error) {
	value := strings.TrimSpace(label)
	hh, mm, ok := strings.Cut(value, ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, label)
	}
	hours, err := strconv.Atoi(hh)
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, label)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, label)
	}
	return hours*60 + minutes, nil
}

// FormatClock renders minutes since midnight as a zero-padded HH:MM label.
// Values outside a single day wrap around midnight.
func FormatClock(minutes int) string {
	m := minutes % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// AddMinutes shifts an HH:MM label by n minutes.
func AddMinutes(label string, n int) (string, error) {
	minutes, err := ParseClock(label)
	if err != nil {
		return "", err
	}
	return FormatClock(minutes + n), nil
}
