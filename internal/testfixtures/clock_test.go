package testfixtures

import (
	"testing"
	"time"

	"github.com/example/equipment-booking/internal/calendar"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
	if clock.Location() != ReferenceZone {
		t.Fatalf("expected reference zone, got %v", clock.Location())
	}
	if got := clock.Today(); got != calendar.NewDay(2024, time.January, 2) {
		t.Fatalf("unexpected today %v", got)
	}
}

func TestClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2024, time.March, 14, 9, 26, 0, 0, time.UTC)
	clock := NewClock(start)

	updated := clock.Advance(90 * time.Minute)
	if !updated.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", updated)
	}

	clock.Set(start.Add(2 * time.Hour))
	if got := clock.Now(); !got.Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("expected %v, got %v", start.Add(2*time.Hour), got)
	}
}

func TestClockSetLocal(t *testing.T) {
	clock := NewClock(time.Time{})
	day := calendar.NewDay(2024, time.January, 8)
	clock.SetLocal(day, 8*60+30)

	want := time.Date(2024, time.January, 8, 8, 30, 0, 0, ReferenceZone)
	if !clock.Now().Equal(want) {
		t.Fatalf("expected %v, got %v", want, clock.Now())
	}
	if clock.Today() != day {
		t.Fatalf("expected today %v, got %v", day, clock.Today())
	}
}

func TestClockNowFunc(t *testing.T) {
	clock := NewClock(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	nowFn := clock.NowFunc()

	clock.Advance(time.Minute)
	if got := nowFn(); !got.Equal(clock.Now()) {
		t.Fatalf("expected updated time %v, got %v", clock.Now(), got)
	}

	var nilClock *Clock
	if nilClock.NowFunc() == nil {
		t.Fatalf("nil clock must fall back to time.Now")
	}
}
