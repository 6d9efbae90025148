package period

import (
	"errors"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/example/equipment-booking/internal/calendar"
)

const (
	defaultFirstStart   = "08:00"
	defaultBreakMinutes = 10
	defaultRangeLength  = 45
)

var dayNames = [7]string{"週日", "週一", "週二", "週三", "週四", "週五", "週六"}

var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// ErrInvalidRange indicates an inverted or unbounded day range.
var ErrInvalidRange = errors.New("period: range end must not precede start")

// DefaultWeeklyAvailability returns Sunday..Saturday with weekdays enabled and
// no ranges configured yet.
func DefaultWeeklyAvailability() WeeklyAvailability {
	out := make(WeeklyAvailability, 0, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		out = append(out, DayTemplate{
			DayName:   dayNames[wd],
			DayOfWeek: wd,
			IsEnabled: wd != time.Sunday && wd != time.Saturday,
			Slots:     []TimeRange{},
		})
	}
	return out
}

// NextRange proposes the range appended after existing: it starts one break
// after the last range ends and lasts one duration. An empty day starts at 08:00.
func NextRange(existing []TimeRange, duration, breakMinutes int) TimeRange {
	if duration <= 0 {
		duration = defaultRangeLength
	}
	if breakMinutes <= 0 {
		breakMinutes = defaultBreakMinutes
	}

	start := defaultFirstStart
	if len(existing) > 0 {
		if next, err := calendar.AddMinutes(existing[len(existing)-1].End, breakMinutes); err == nil {
			start = next
		}
	}
	end, err := calendar.AddMinutes(start, duration)
	if err != nil {
		end = start
	}
	return TimeRange{Start: start, End: end}
}

// CopyRanges returns a copy of w in which every other enabled day carries the
// ranges of source. Disabled days are left untouched.
func (w WeeklyAvailability) CopyRanges(source time.Weekday) WeeklyAvailability {
	out := w.Clone()
	src, ok := w.Day(source)
	if !ok {
		return out
	}
	for i := range out {
		if out[i].DayOfWeek == source || !out[i].IsEnabled {
			continue
		}
		out[i].Slots = append([]TimeRange(nil), src.Slots...)
	}
	return out
}

// OfferingDays lists the days in [from, until] whose weekday is enabled.
func OfferingDays(w WeeklyAvailability, from, until calendar.Day, loc *time.Location) ([]calendar.Day, error) {
	if until.Before(from) {
		return nil, ErrInvalidRange
	}

	weekdays := enabledWeekdays(w)
	if len(weekdays) == 0 {
		return nil, nil
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: weekdays,
		Dtstart:   from.Midnight(loc),
		Until:     until.Midnight(loc),
	})
	if err != nil {
		return nil, err
	}

	occurrences := rule.All()
	days := make([]calendar.Day, 0, len(occurrences))
	for _, occ := range occurrences {
		days = append(days, calendar.DayOf(occ, loc))
	}
	return days, nil
}

// WeeklyRule returns the RFC 5545 RRULE value repeating a day template weekly,
// or "" when the day is disabled.
func WeeklyRule(day DayTemplate) string {
	if !day.IsEnabled || day.DayOfWeek < time.Sunday || day.DayOfWeek > time.Saturday {
		return ""
	}
	opt := rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rruleWeekdays[day.DayOfWeek]},
	}
	return strings.TrimPrefix(opt.RRuleString(), "RRULE:")
}

func enabledWeekdays(w WeeklyAvailability) []rrule.Weekday {
	seen := make(map[time.Weekday]bool, 7)
	var out []rrule.Weekday
	for _, d := range w {
		if !d.IsEnabled || d.DayOfWeek < time.Sunday || d.DayOfWeek > time.Saturday || seen[d.DayOfWeek] {
			continue
		}
		seen[d.DayOfWeek] = true
		out = append(out, rruleWeekdays[d.DayOfWeek])
	}
	return out
}
