package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/equipment-booking/internal/application"
	"github.com/example/equipment-booking/internal/booking"
	"github.com/example/equipment-booking/internal/calendar"
	"github.com/example/equipment-booking/internal/period"
	"github.com/example/equipment-booking/internal/store/memory"
)

func TestServiceFactoryBooksThroughMemoryStore(t *testing.T) {
	ctx := context.Background()
	factory := NewServiceFactory()
	store := factory.NewMemoryStore(NewSnapshotFixture(), memory.Account{Account: "t01", Password: "pw", Name: "Teacher", Role: booking.RoleTeacher})
	services := factory.NewServices(ServiceDeps{Store: store})

	if _, err := services.Bookings.Refresh(ctx); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	user, err := services.Auth.Login(ctx, application.LoginParams{Account: "t01", Password: "pw"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	monday := calendar.NewDay(2024, time.January, 8)
	snapshot, err := services.Bookings.Confirm(ctx, application.ConfirmParams{User: user, Date: monday, Period: 1, EquipmentID: "cam"})
	if err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}

	if len(snapshot.Reservations) != 1 {
		t.Fatalf("expected one reservation, got %d", len(snapshot.Reservations))
	}
	res := snapshot.Reservations[0]
	if res.ID != "res-1" {
		t.Fatalf("expected generated ID res-1, got %q", res.ID)
	}
	if res.UserID != "t01" || res.EquipmentName != "Camera" {
		t.Fatalf("unexpected reservation %+v", res)
	}
	if services.Holder.Load() != snapshot {
		t.Fatalf("holder must serve the mutation response")
	}
}

func TestSnapshotFixtureDefaults(t *testing.T) {
	snapshot := NewSnapshotFixture(WithReservations(NewReservationFixture(WithReservationID("r-x")))).Snapshot()

	if len(snapshot.Settings.Periods) != 3 {
		t.Fatalf("expected three periods, got %+v", snapshot.Settings.Periods)
	}
	if snapshot.Settings.SetupMode() {
		t.Fatalf("fixture must not be in setup mode")
	}
	if _, ok := snapshot.FindReservation("r-x"); !ok {
		t.Fatalf("reservation fixture missing")
	}
	if NewSnapshotFixture(WithSheetID("")).Snapshot().Settings.SetupMode() != true {
		t.Fatalf("empty sheet id must mean setup mode")
	}
}

func TestSnapshotFixtureOptions(t *testing.T) {
	fetched := ReferenceTime().Add(time.Hour)
	snapshot := NewSnapshotFixture(
		WithAvailability(WeekdayAvailability(period.TimeRange{Start: "09:00", End: "10:00"})),
		WithAppointmentDuration(30),
		WithBookingWindowDays(7),
		WithFetchedAt(fetched),
		WithReservations(NewReservationFixture(WithReservationEquipmentName("Tripod"))),
	).Snapshot()

	if len(snapshot.Settings.Periods) != 2 || snapshot.Settings.Periods[1].Start != "09:30" {
		t.Fatalf("unexpected periods %+v", snapshot.Settings.Periods)
	}
	if snapshot.Settings.BookingWindowDays.Int() != 7 || !snapshot.FetchedAt.Equal(fetched) {
		t.Fatalf("unexpected settings %+v fetched at %v", snapshot.Settings, snapshot.FetchedAt)
	}
	if snapshot.Reservations[0].EquipmentName != "Tripod" {
		t.Fatalf("unexpected reservation %+v", snapshot.Reservations[0])
	}
}
