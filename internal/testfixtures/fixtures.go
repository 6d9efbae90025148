package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/equipment-booking/internal/booking"
	"github.com/example/equipment-booking/internal/period"
	"github.com/example/equipment-booking/internal/scheduler"
)

var reservationCounter uint64

// ReferenceZone is the fixed +08:00 zone fixtures are expressed in.
var ReferenceZone = time.FixedZone("CST", 8*60*60)

var referenceTime = time.Date(2024, time.January, 2, 9, 0, 0, 0, ReferenceZone)

// ReferenceTime returns the canonical baseline instant used by fixtures,
// Tuesday 2024-01-02 09:00 in ReferenceZone.
func ReferenceTime() time.Time {
	return referenceTime
}

// Equipment returns an equipment item.
func Equipment(id, name string, capacity int) scheduler.Equipment {
	return scheduler.Equipment{ID: id, Name: name, Capacity: scheduler.Number(capacity)}
}

// WeekdayAvailability enables Monday to Friday with the given ranges and
// leaves the weekend disabled.
func WeekdayAvailability(ranges ...period.TimeRange) period.WeeklyAvailability {
	availability := period.DefaultWeeklyAvailability()
	for i := range availability {
		if availability[i].IsEnabled {
			availability[i].Slots = append([]period.TimeRange(nil), ranges...)
		}
	}
	return availability
}

// ----------------------------- Reservation fixtures -----------------------------

// ReservationFixture is a deterministic reservation record.
type ReservationFixture struct {
	ID            string
	UserID        string
	UserName      string
	EquipmentID   string
	EquipmentName string
	Date          string
	Period        int
	Timestamp     time.Time
}

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns a reservation of period 1 on the Monday after
// ReferenceTime, with optional overrides.
func NewReservationFixture(opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	fixture := ReservationFixture{
		ID:            fmt.Sprintf("res-%03d", idx),
		UserID:        fmt.Sprintf("user-%03d", idx),
		UserName:      fmt.Sprintf("User %03d", idx),
		EquipmentID:   "cam",
		EquipmentName: "Camera",
		Date:          "2024-01-08",
		Period:        1,
		Timestamp:     referenceTime.Add(-time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReservationID overrides the generated reservation ID.
func WithReservationID(id string) ReservationOption {
	return func(f *ReservationFixture) {
		f.ID = id
	}
}

// WithReservationUser sets the booking user.
func WithReservationUser(id, name string) ReservationOption {
	return func(f *ReservationFixture) {
		f.UserID = id
		f.UserName = name
	}
}

// WithReservationSlot sets the equipment, stored date and period.
func WithReservationSlot(equipmentID, date string, periodIndex int) ReservationOption {
	return func(f *ReservationFixture) {
		f.EquipmentID = equipmentID
		f.Date = date
		f.Period = periodIndex
	}
}

// WithReservationEquipmentName overrides the equipment display name.
func WithReservationEquipmentName(name string) ReservationOption {
	return func(f *ReservationFixture) {
		f.EquipmentName = name
	}
}

// Reservation returns the fixture as a store reservation.
func (f ReservationFixture) Reservation() scheduler.Reservation {
	return scheduler.Reservation{
		ID:            f.ID,
		UserID:        f.UserID,
		UserName:      f.UserName,
		EquipmentID:   f.EquipmentID,
		EquipmentName: f.EquipmentName,
		Date:          f.Date,
		Period:        scheduler.Number(f.Period),
		Timestamp:     f.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// ----------------------------- Snapshot fixtures -----------------------------

// SnapshotFixture describes the settings and reservations of a snapshot.
type SnapshotFixture struct {
	SiteTitle           string
	SheetID             string
	BookingWindowDays   int
	AppointmentDuration int
	DefaultBreakMinutes int
	Equipment           []scheduler.Equipment
	Availability        period.WeeklyAvailability
	Reservations        []ReservationFixture
	FetchedAt           time.Time
}

// SnapshotOption configures the generated snapshot fixture.
type SnapshotOption func(*SnapshotFixture)

// NewSnapshotFixture returns a configured site: Monday to Friday 08:00-10:00
// in 40 minute periods (three periods), a camera with capacity 1 and iPads
// with capacity 2.
func NewSnapshotFixture(opts ...SnapshotOption) SnapshotFixture {
	fixture := SnapshotFixture{
		SiteTitle:           booking.DefaultSiteTitle,
		SheetID:             "sheet-test",
		BookingWindowDays:   booking.DefaultBookingWindowDays,
		AppointmentDuration: booking.DefaultAppointmentDuration,
		DefaultBreakMinutes: booking.DefaultBreakMinutes,
		Equipment: []scheduler.Equipment{
			Equipment("cam", "Camera", 1),
			Equipment("ipad", "iPad", 2),
		},
		Availability: WeekdayAvailability(period.TimeRange{Start: "08:00", End: "10:00"}),
		FetchedAt:    referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSheetID sets the store sheet id. An empty id puts the site in setup mode.
func WithSheetID(id string) SnapshotOption {
	return func(f *SnapshotFixture) {
		f.SheetID = id
	}
}

// WithEquipment replaces the equipment list.
func WithEquipment(equipment ...scheduler.Equipment) SnapshotOption {
	return func(f *SnapshotFixture) {
		f.Equipment = append([]scheduler.Equipment(nil), equipment...)
	}
}

// WithAvailability replaces the weekly availability.
func WithAvailability(availability period.WeeklyAvailability) SnapshotOption {
	return func(f *SnapshotFixture) {
		f.Availability = availability.Clone()
	}
}

// WithAppointmentDuration sets the period length in minutes.
func WithAppointmentDuration(minutes int) SnapshotOption {
	return func(f *SnapshotFixture) {
		f.AppointmentDuration = minutes
	}
}

// WithBookingWindowDays sets how many days ahead may be booked.
func WithBookingWindowDays(days int) SnapshotOption {
	return func(f *SnapshotFixture) {
		f.BookingWindowDays = days
	}
}

// WithReservations replaces the reservations.
func WithReservations(reservations ...ReservationFixture) SnapshotOption {
	return func(f *SnapshotFixture) {
		f.Reservations = append([]ReservationFixture(nil), reservations...)
	}
}

// WithFetchedAt sets the snapshot fetch time.
func WithFetchedAt(t time.Time) SnapshotOption {
	return func(f *SnapshotFixture) {
		f.FetchedAt = t
	}
}

// Settings returns the fixture's site settings with generated periods.
func (f SnapshotFixture) Settings() booking.Settings {
	settings := booking.Settings{
		SiteTitle:           f.SiteTitle,
		SheetID:             f.SheetID,
		BookingWindowDays:   scheduler.Number(f.BookingWindowDays),
		AppointmentDuration: scheduler.Number(f.AppointmentDuration),
		DefaultBreakMinutes: scheduler.Number(f.DefaultBreakMinutes),
		Equipment:           append([]scheduler.Equipment{}, f.Equipment...),
		WeeklyAvailability:  f.Availability.Clone(),
	}
	settings.Periods = period.Generate(settings.WeeklyAvailability, f.AppointmentDuration)
	return settings
}

// StoredReservations returns the reservations as the store holds them.
func (f SnapshotFixture) StoredReservations() []scheduler.Reservation {
	out := make([]scheduler.Reservation, 0, len(f.Reservations))
	for _, r := range f.Reservations {
		out = append(out, r.Reservation())
	}
	return out
}

// Snapshot builds the booking snapshot.
func (f SnapshotFixture) Snapshot() *booking.Snapshot {
	return booking.NewSnapshot(f.Settings(), f.StoredReservations(), f.FetchedAt)
}
