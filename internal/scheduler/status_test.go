package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/example/equipment-booking/internal/calendar"
	"github.com/example/equipment-booking/internal/period"
)

var testZone = time.FixedZone("CST", 8*60*60)

// weekdayTemplate enables every day with 08:00-12:00 except Sunday.
func weekdayTemplate() period.WeeklyAvailability {
	w := period.DefaultWeeklyAvailability()
	for i := range w {
		w[i].IsEnabled = w[i].DayOfWeek != time.Sunday
		w[i].Slots = []period.TimeRange{{Start: "08:00", End: "12:00"}}
	}
	return w
}

func newTestResolver(now time.Time, availability period.WeeklyAvailability, equipment []Equipment, reservations []Reservation) *Resolver {
	return NewResolver(ResolverInput{
		Availability:      availability,
		Periods:           period.Generate(availability, 40),
		Equipment:         equipment,
		BookingWindowDays: 30,
		Reservations:      reservations,
		Location:          testZone,
		Now:               func() time.Time { return now },
	})
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	// 2025-01-01 09:00 local, a Wednesday.
	now := time.Date(2025, time.January, 1, 9, 0, 0, 0, testZone)
	equipment := []Equipment{{ID: "A", Name: "Projector", Capacity: 2}, {ID: "B", Name: "Laptop", Capacity: 1}}

	t.Run("disabled weekday is unavailable", func(t *testing.T) {
		t.Parallel()
		r := newTestResolver(now, weekdayTemplate(), equipment, nil)
		sunday := calendar.NewDay(2025, time.January, 5)
		if got := r.Resolve(sunday, 1, equipment); got != StatusUnavailable {
			t.Fatalf("expected unavailable, got %s", got)
		}
	})

	t.Run("period outside the weekday ranges is unavailable", func(t *testing.T) {
		t.Parallel()
		w := weekdayTemplate()
		w[time.Monday].Slots = []period.TimeRange{{Start: "10:00", End: "12:00"}}
		r := newTestResolver(now, w, equipment, nil)
		monday := calendar.NewDay(2025, time.January, 6)
		// Period 1 starts at 08:00 which Monday no longer offers.
		if got := r.Resolve(monday, 1, equipment); got != StatusUnavailable {
			t.Fatalf("expected unavailable, got %s", got)
		}
		if got := r.Resolve(monday, 4, equipment); got != StatusAvailable {
			t.Fatalf("expected 10:00 period to be available, got %s", got)
		}
	})

	t.Run("unknown period is unavailable", func(t *testing.T) {
		t.Parallel()
		r := newTestResolver(now, weekdayTemplate(), equipment, nil)
		if got := r.Resolve(calendar.NewDay(2025, time.January, 2), 99, equipment); got != StatusUnavailable {
			t.Fatalf("expected unavailable, got %s", got)
		}
	})

	t.Run("past slot is expired even when fully booked", func(t *testing.T) {
		t.Parallel()
		today := calendar.NewDay(2025, time.January, 1)
		reservations := []Reservation{
			{ID: "1", EquipmentID: "A", Date: "2025-01-01", Period: 1},
			{ID: "2", EquipmentID: "A", Date: "2025-01-01", Period: 1},
			{ID: "3", EquipmentID: "B", Date: "2025-01-01", Period: 1},
		}
		r := newTestResolver(now, weekdayTemplate(), equipment, reservations)
		if got := r.Resolve(today, 1, equipment); got != StatusExpired {
			t.Fatalf("expected expired, got %s", got)
		}
		if got := r.Resolve(today, 1, nil); got != StatusExpired {
			t.Fatalf("expired must win over an empty filter, got %s", got)
		}
	})

	t.Run("booking window boundary", func(t *testing.T) {
		t.Parallel()
		r := newTestResolver(now, weekdayTemplate(), equipment, nil)
		// 2025-01-31 is a Friday, 2025-01-30 a Thursday; both offered.
		if got := r.Resolve(calendar.NewDay(2025, time.January, 31), 1, equipment); got != StatusUnavailable {
			t.Fatalf("expected day 30 to be outside the window, got %s", got)
		}
		if got := r.Resolve(calendar.NewDay(2025, time.January, 30), 1, equipment); got != StatusAvailable {
			t.Fatalf("expected day 29 to be evaluated on merits, got %s", got)
		}
	})

	t.Run("non-positive window falls back to thirty days", func(t *testing.T) {
		t.Parallel()
		r := NewResolver(ResolverInput{
			Availability: weekdayTemplate(),
			Periods:      period.Generate(weekdayTemplate(), 40),
			Equipment:    equipment,
			Location:     testZone,
			Now:          func() time.Time { return now },
		})
		if got := r.Resolve(calendar.NewDay(2025, time.January, 31), 1, equipment); got != StatusUnavailable {
			t.Fatalf("expected default window to apply, got %s", got)
		}
	})

	t.Run("fully booked when reservations reach total capacity", func(t *testing.T) {
		t.Parallel()
		day := calendar.NewDay(2025, time.January, 2)
		reservations := []Reservation{
			{ID: "1", EquipmentID: "A", Date: "2025-01-02", Period: 1},
			{ID: "2", EquipmentID: "A", Date: "2025-01-02", Period: 1},
			{ID: "3", EquipmentID: "B", Date: "2025-01-02", Period: 1},
		}
		r := newTestResolver(now, weekdayTemplate(), equipment, reservations)
		if got := r.Resolve(day, 1, r.FilterEquipment(SelectAll)); got != StatusFullyBooked {
			t.Fatalf("expected fully-booked, got %s", got)
		}
		if got := r.Resolve(day, 2, r.FilterEquipment(SelectAll)); got != StatusAvailable {
			t.Fatalf("expected next period to be available, got %s", got)
		}
		if got := r.Resolve(day, 1, r.FilterEquipment("B")); got != StatusFullyBooked {
			t.Fatalf("expected B alone to be fully booked, got %s", got)
		}
	})

	t.Run("repeated equipment ids count once", func(t *testing.T) {
		t.Parallel()
		day := calendar.NewDay(2025, time.January, 2)
		repeated := []Equipment{{ID: "A", Name: "Projector", Capacity: 2}, {ID: "A", Name: "Projector", Capacity: 2}}
		reservations := []Reservation{
			{ID: "1", EquipmentID: "A", Date: "2025-01-02", Period: 1},
			{ID: "2", EquipmentID: "A", Date: "2025-01-02", Period: 1},
		}
		r := newTestResolver(now, weekdayTemplate(), repeated, reservations)
		if got := r.Resolve(day, 1, repeated); got != StatusFullyBooked {
			t.Fatalf("expected fully-booked, got %s", got)
		}
		if got := r.Resolve(day, 2, repeated); got != StatusAvailable {
			t.Fatalf("expected available, got %s", got)
		}
	})

	t.Run("empty filter is unavailable", func(t *testing.T) {
		t.Parallel()
		r := newTestResolver(now, weekdayTemplate(), equipment, nil)
		if got := r.Resolve(calendar.NewDay(2025, time.January, 2), 1, r.FilterEquipment("missing")); got != StatusUnavailable {
			t.Fatalf("expected unavailable, got %s", got)
		}
	})
}

func TestResolver_EndToEnd(t *testing.T) {
	t.Parallel()

	w := period.DefaultWeeklyAvailability()
	for i := range w {
		w[i].IsEnabled = w[i].DayOfWeek == time.Monday
	}
	w[time.Monday].Slots = []period.TimeRange{{Start: "08:00", End: "09:20"}}

	periods := period.Generate(w, 40)
	if len(periods) != 2 || periods[0] != (period.Period{Index: 1, Start: "08:00", End: "08:40"}) || periods[1] != (period.Period{Index: 2, Start: "08:40", End: "09:20"}) {
		t.Fatalf("unexpected periods %+v", periods)
	}

	// Saturday 2025-01-04; the Monday two days later is 2025-01-06.
	now := time.Date(2025, time.January, 4, 10, 0, 0, 0, testZone)
	equipment := []Equipment{{ID: "cam", Name: "Camera", Capacity: 1}}
	r := NewResolver(ResolverInput{
		Availability:      w,
		Periods:           periods,
		Equipment:         equipment,
		BookingWindowDays: 30,
		Location:          testZone,
		Now:               func() time.Time { return now },
	})
	if got := r.Resolve(calendar.NewDay(2025, time.January, 6), 1, equipment); got != StatusAvailable {
		t.Fatalf("expected available, got %s", got)
	}
}

func TestResolver_ResolveEquipment(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.January, 1, 9, 0, 0, 0, testZone)
	day := calendar.NewDay(2025, time.January, 2)
	single := Equipment{ID: "A", Name: "Projector", Capacity: 1}
	double := Equipment{ID: "B", Name: "Laptop", Capacity: 2}

	t.Run("own reservation wins over full capacity", func(t *testing.T) {
		t.Parallel()
		r := newTestResolver(now, weekdayTemplate(), []Equipment{single}, []Reservation{
			{ID: "mine", UserID: "teacher01", EquipmentID: "A", Date: "2025-01-02", Period: 1},
		})
		slot, err := r.ResolveEquipment(day, 1, single, "teacher01")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if slot.Status != EquipmentMyReservation || slot.ReservationID != "mine" {
			t.Fatalf("expected my-reservation, got %+v", slot)
		}

		other, _ := r.ResolveEquipment(day, 1, single, "teacher02")
		if other.Status != EquipmentReserved || other.Reserved != 1 || other.Capacity != 1 {
			t.Fatalf("expected reserved for another user, got %+v", other)
		}
	})

	t.Run("available carries the remaining count", func(t *testing.T) {
		t.Parallel()
		r := newTestResolver(now, weekdayTemplate(), []Equipment{double}, []Reservation{
			{ID: "x", UserID: "someone", EquipmentID: "B", Date: "2025-01-02", Period: 1},
		})
		slot, err := r.ResolveEquipment(day, 1, double, "teacher01")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if slot.Status != EquipmentAvailable || slot.Remaining != 1 {
			t.Fatalf("expected one remaining, got %+v", slot)
		}
	})

	t.Run("past slot is expired", func(t *testing.T) {
		t.Parallel()
		r := newTestResolver(now, weekdayTemplate(), []Equipment{single}, []Reservation{
			{ID: "mine", UserID: "teacher01", EquipmentID: "A", Date: "2025-01-01", Period: 1},
		})
		slot, err := r.ResolveEquipment(calendar.NewDay(2025, time.January, 1), 1, single, "teacher01")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if slot.Status != EquipmentExpired {
			t.Fatalf("expected expired, got %s", slot.Status)
		}
	})

	t.Run("unknown period is an error", func(t *testing.T) {
		t.Parallel()
		r := newTestResolver(now, weekdayTemplate(), []Equipment{single}, nil)
		if _, err := r.ResolveEquipment(day, 42, single, "teacher01"); !errors.Is(err, ErrUnknownPeriod) {
			t.Fatalf("expected ErrUnknownPeriod, got %v", err)
		}
		if _, err := r.ResolveAllEquipment(day, 42, "teacher01"); !errors.Is(err, ErrUnknownPeriod) {
			t.Fatalf("expected ErrUnknownPeriod from ResolveAllEquipment, got %v", err)
		}
	})
}

func TestResolver_Views(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.January, 1, 9, 0, 0, 0, testZone)
	equipment := []Equipment{{ID: "A", Capacity: 1}}
	r := newTestResolver(now, weekdayTemplate(), equipment, nil)

	today := r.DayView(calendar.NewDay(2025, time.January, 1), equipment)
	if len(today.Periods) != 6 {
		t.Fatalf("expected 6 periods, got %d", len(today.Periods))
	}
	if today.Periods[0].Status != StatusExpired || today.Periods[2].Status != StatusAvailable {
		t.Fatalf("unexpected statuses %+v", today.Periods)
	}

	month := r.MonthView(2025, time.February, equipment)
	if len(month) != 28 {
		t.Fatalf("expected 28 days, got %d", len(month))
	}
	for _, d := range month {
		for _, p := range d.Periods {
			if p.Status == StatusAvailable && !d.Day.Before(calendar.NewDay(2025, time.January, 31)) {
				t.Fatalf("%s period %d lies beyond the window but is available", d.Day, p.Period.Index)
			}
		}
	}

	if !r.IsExpired(Reservation{Date: "2025-01-01", Period: 1}) {
		t.Fatalf("08:00 today is in the past")
	}
	if r.IsExpired(Reservation{Date: "2025-01-01", Period: 3}) {
		t.Fatalf("09:20 today is still ahead")
	}
	if !r.IsExpired(Reservation{Date: "2025-01-01", Period: 77}) {
		t.Fatalf("unknown period falls back to midnight")
	}
}
