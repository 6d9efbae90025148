package booking

import (
	"time"

	"github.com/example/equipment-booking/internal/calendar"
	"github.com/example/equipment-booking/internal/period"
	"github.com/example/equipment-booking/internal/scheduler"
)

// Snapshot is one authoritative view of settings and reservations. Values are
// replaced whole and must not be modified after construction.
type Snapshot struct {
	Settings     Settings                `json:"settings"`
	Reservations []scheduler.Reservation `json:"reservations"`
	FetchedAt    time.Time               `json:"fetchedAt"`
}

// NewSnapshot builds a snapshot, regenerating the period list from the
// availability template and duration. Periods carried in settings are ignored.
func NewSnapshot(settings Settings, reservations []scheduler.Reservation, fetchedAt time.Time) *Snapshot {
	settings = settings.Clone()
	settings.Periods = period.Generate(settings.WeeklyAvailability, settings.AppointmentDuration.Int())
	if settings.Periods == nil {
		settings.Periods = []period.Period{}
	}
	if reservations == nil {
		reservations = []scheduler.Reservation{}
	}
	return &Snapshot{
		Settings:     settings,
		Reservations: append([]scheduler.Reservation(nil), reservations...),
		FetchedAt:    fetchedAt,
	}
}

// Resolver builds a status resolver over the snapshot.
func (s *Snapshot) Resolver(loc *time.Location, now func() time.Time) *scheduler.Resolver {
	return scheduler.NewResolver(scheduler.ResolverInput{
		Availability:      s.Settings.WeeklyAvailability,
		Periods:           s.Settings.Periods,
		Equipment:         s.Settings.Equipment,
		BookingWindowDays: s.Settings.BookingWindowDays.Int(),
		Reservations:      s.Reservations,
		Location:          loc,
		Now:               now,
	})
}

// FindReservation returns the reservation with the given id.
func (s *Snapshot) FindReservation(id string) (scheduler.Reservation, bool) {
	for _, r := range s.Reservations {
		if r.ID == id {
			return r, true
		}
	}
	return scheduler.Reservation{}, false
}

// Period returns the period with the given index.
func (s *Snapshot) Period(index int) (period.Period, bool) {
	return period.Find(s.Settings.Periods, index)
}

// ReservationDay normalizes a reservation's stored date to a calendar day.
func ReservationDay(r scheduler.Reservation, loc *time.Location) (calendar.Day, error) {
	return calendar.NormalizeStoredDate(r.Date, loc)
}
