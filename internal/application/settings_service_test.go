package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/equipment-booking/internal/booking"
	"github.com/example/equipment-booking/internal/period"
	"github.com/example/equipment-booking/internal/scheduler"
)

func TestSettingsService_Save(t *testing.T) {
	t.Run("normalizes, assigns ids and installs the result", func(t *testing.T) {
		draft := testSettings()
		draft.SiteTitle = "  "
		draft.Equipment = append(draft.Equipment, scheduler.Equipment{Name: " Projector ", Capacity: 3})

		store := &storeStub{}
		bookings := newTestBookingService(store, nil, booking.NewSnapshot(testSettings(), nil, testNow()))
		svc := NewSettingsService(store, bookings, func() string { return "equip-1" })

		expected := draft.Clone()
		expected.SiteTitle = booking.DefaultSiteTitle
		expected.Equipment[2] = scheduler.Equipment{ID: "equip-1", Name: "Projector", Capacity: 3}
		store.mutateData = snapshotData(t, expected, nil)

		snap, err := svc.Save(context.Background(), SaveSettingsParams{User: booking.User{Account: "admin"}, Settings: draft})
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		if snap.Settings.Equipment[2].ID != "equip-1" {
			t.Fatalf("unexpected installed settings %+v", snap.Settings.Equipment)
		}

		sent, ok := store.lastRequest().Payload.(booking.Settings)
		if !ok {
			t.Fatalf("expected settings payload, got %T", store.lastRequest().Payload)
		}
		if sent.SiteTitle != booking.DefaultSiteTitle || sent.Equipment[2].ID != "equip-1" || sent.Equipment[2].Name != "Projector" {
			t.Fatalf("settings not normalized: %+v", sent)
		}
		if len(sent.Periods) != 3 {
			t.Fatalf("expected periods to be regenerated before sending, got %+v", sent.Periods)
		}
		if len(draft.Equipment[2].ID) != 0 {
			t.Fatalf("caller's draft must not be modified")
		}
	})

	t.Run("setup mode requires a sheet id", func(t *testing.T) {
		store := &storeStub{}
		bookings := newTestBookingService(store, nil, booking.NewSnapshot(booking.DefaultSettings(), nil, testNow()))
		svc := NewSettingsService(store, bookings, nil)

		draft := booking.DefaultSettings()
		draft.SheetID = "   "
		_, err := svc.Save(context.Background(), SaveSettingsParams{Settings: draft})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["googleSheetUrl"] == "" {
			t.Fatalf("expected googleSheetUrl validation error, got %v", err)
		}
		if len(store.requests) != 0 {
			t.Fatalf("store must not be contacted")
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		bookings := newTestBookingService(&storeStub{}, nil, booking.NewSnapshot(testSettings(), nil, testNow()))
		svc := NewSettingsService(&storeStub{}, bookings, nil)

		draft := testSettings()
		draft.AppointmentDuration = 0
		draft.BookingWindowDays = -1
		draft.DefaultBreakMinutes = -5
		draft.Equipment = []scheduler.Equipment{{ID: "x", Name: "", Capacity: 0}, {ID: "x", Name: "dup", Capacity: 1}}
		draft.WeeklyAvailability[1].Slots = []period.TimeRange{{Start: "10:00", End: "09:00"}}

		_, err := svc.Save(context.Background(), SaveSettingsParams{Settings: draft})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		for _, field := range []string{
			"appointmentDuration", "bookingWindowDays", "defaultBreakMinutes",
			"equipment[0].name", "equipment[0].total", "equipment[1].id",
			"weeklyAvailability[1].slots[0]",
		} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("missing field error %s in %v", field, vErr.FieldErrors)
			}
		}
	})
}

func TestSettingsService_RangeHelpers(t *testing.T) {
	svc := NewSettingsService(nil, nil, nil)
	draft := booking.DefaultSettings()

	next, err := svc.NextRange(draft, time.Monday)
	if err != nil {
		t.Fatalf("NextRange: %v", err)
	}
	monday, _ := next.WeeklyAvailability.Day(time.Monday)
	if len(monday.Slots) != 1 || monday.Slots[0] != (period.TimeRange{Start: "08:00", End: "08:40"}) {
		t.Fatalf("unexpected first range %+v", monday.Slots)
	}
	next, _ = svc.NextRange(next, time.Monday)
	monday, _ = next.WeeklyAvailability.Day(time.Monday)
	if monday.Slots[1] != (period.TimeRange{Start: "08:50", End: "09:30"}) {
		t.Fatalf("unexpected second range %+v", monday.Slots[1])
	}
	if original, _ := draft.WeeklyAvailability.Day(time.Monday); len(original.Slots) != 0 {
		t.Fatalf("draft must not be modified")
	}

	copied, err := svc.CopyRanges(next, time.Monday)
	if err != nil {
		t.Fatalf("CopyRanges: %v", err)
	}
	friday, _ := copied.WeeklyAvailability.Day(time.Friday)
	sunday, _ := copied.WeeklyAvailability.Day(time.Sunday)
	if len(friday.Slots) != 2 || len(sunday.Slots) != 0 {
		t.Fatalf("unexpected copy result friday=%+v sunday=%+v", friday.Slots, sunday.Slots)
	}

	broken := booking.DefaultSettings()
	broken.WeeklyAvailability = broken.WeeklyAvailability[:1]
	if _, err := svc.NextRange(broken, time.Monday); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.CopyRanges(broken, time.Monday); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSettingsService_CurrentDefaults(t *testing.T) {
	store := &storeStub{}
	svc := NewSettingsService(store, newTestBookingService(store, nil, nil), nil)
	if got := svc.Current(context.Background()).SiteTitle; got != booking.DefaultSiteTitle {
		t.Fatalf("unexpected default title %q", got)
	}
	if _, err := svc.SetupMode(context.Background()); !errors.Is(err, ErrSnapshotUnavailable) {
		t.Fatalf("setup mode must be unknown before any snapshot is loaded, got %v", err)
	}

	draft := booking.DefaultSettings()
	draft.SheetID = "sheet-x"
	if _, err := svc.Save(context.Background(), SaveSettingsParams{Settings: draft}); !errors.Is(err, ErrSnapshotUnavailable) {
		t.Fatalf("expected ErrSnapshotUnavailable, got %v", err)
	}
	if len(store.requests) != 0 {
		t.Fatalf("save without a snapshot must not reach the store")
	}
}

func TestSettingsService_SetupModeFromSnapshot(t *testing.T) {
	setup := NewSettingsService(nil, newTestBookingService(nil, nil, booking.NewSnapshot(booking.DefaultSettings(), nil, testNow())), nil)
	if mode, err := setup.SetupMode(context.Background()); err != nil || !mode {
		t.Fatalf("expected setup mode, got %v (%v)", mode, err)
	}
	configured := NewSettingsService(nil, newTestBookingService(nil, nil, booking.NewSnapshot(testSettings(), nil, testNow())), nil)
	if mode, err := configured.SetupMode(context.Background()); err != nil || mode {
		t.Fatalf("expected configured site, got %v (%v)", mode, err)
	}
}
