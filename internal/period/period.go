// Package period derives the global list of bookable periods from a weekly
// availability template.
package period

import (
	"sort"
	"time"

	"github.com/example/equipment-booking/internal/calendar"
)

// TimeRange is an open window on a weekday, expressed as HH:MM labels.
type TimeRange struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// bounds returns the range in minutes since midnight. ok is false when either
// label is malformed or the range is empty.
func (r TimeRange) bounds() (start, end int, ok bool) {
	start, err := calendar.ParseClock(r.Start)
	if err != nil {
		return 0, 0, false
	}
	end, err = calendar.ParseClock(r.End)
	if err != nil {
		return 0, 0, false
	}
	if start >= end {
		return 0, 0, false
	}
	return start, end, true
}

// Valid reports whether both labels parse and start precedes end.
func (r TimeRange) Valid() bool {
	_, _, ok := r.bounds()
	return ok
}

// DayTemplate describes the recurring availability of one weekday.
type DayTemplate struct {
	DayName   string       `json:"dayName,omitempty" yaml:"day_name,omitempty"`
	DayOfWeek time.Weekday `json:"dayOfWeek" yaml:"day_of_week"`
	IsEnabled bool         `json:"isEnabled" yaml:"is_enabled"`
	Slots     []TimeRange  `json:"slots" yaml:"slots"`
}

// Offers reports whether a period starting at start minutes falls inside one
// of the day's ranges (range.start <= start < range.end).
func (d DayTemplate) Offers(start int) bool {
	for _, r := range d.Slots {
		lo, hi, ok := r.bounds()
		if !ok {
			continue
		}
		if start >= lo && start < hi {
			return true
		}
	}
	return false
}

// WeeklyAvailability is the recurring template, one entry per weekday.
type WeeklyAvailability []DayTemplate

// Day returns the template whose DayOfWeek matches weekday.
func (w WeeklyAvailability) Day(weekday time.Weekday) (DayTemplate, bool) {
	for _, d := range w {
		if d.DayOfWeek == weekday {
			return d, true
		}
	}
	return DayTemplate{}, false
}

// Clone returns a deep copy.
func (w WeeklyAvailability) Clone() WeeklyAvailability {
	if w == nil {
		return nil
	}
	out := make(WeeklyAvailability, len(w))
	for i, d := range w {
		d.Slots = append([]TimeRange(nil), d.Slots...)
		out[i] = d
	}
	return out
}

// Period is a globally numbered bookable time-of-day interval.
type Period struct {
	Index int    `json:"period"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// StartMinutes returns the period start in minutes since midnight.
func (p Period) StartMinutes() int {
	m, err := calendar.ParseClock(p.Start)
	if err != nil {
		return 0
	}
	return m
}

// Generate expands the template into the ordered, deduplicated period list.
//
// Each enabled range is walked from its start in steps of duration minutes; a
// candidate whose end would pass the range end stops that range. Start times
// are collected across all enabled weekdays into one set, so a period number
// denotes the same clock time on every date.
func Generate(availability WeeklyAvailability, duration int) []Period {
	if len(availability) == 0 || duration <= 0 {
		return nil
	}

	starts := make(map[int]struct{})
	for _, day := range availability {
		if !day.IsEnabled {
			continue
		}
		for _, r := range day.Slots {
			lo, hi, ok := r.bounds()
			if !ok {
				continue
			}
			for current := lo; current < hi; current += duration {
				if current+duration > hi {
					break
				}
				starts[current] = struct{}{}
			}
		}
	}
	if len(starts) == 0 {
		return nil
	}

	ordered := make([]int, 0, len(starts))
	for start := range starts {
		ordered = append(ordered, start)
	}
	sort.Ints(ordered)

	periods := make([]Period, 0, len(ordered))
	for i, start := range ordered {
		periods = append(periods, Period{
			Index: i + 1,
			Start: calendar.FormatClock(start),
			End:   calendar.FormatClock(start + duration),
		})
	}
	return periods
}

// Find returns the period with the given 1-based index.
func Find(periods []Period, index int) (Period, bool) {
	for _, p := range periods {
		if p.Index == index {
			return p, true
		}
	}
	return Period{}, false
}
