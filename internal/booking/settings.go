package booking

import (
	"github.com/example/equipment-booking/internal/period"
	"github.com/example/equipment-booking/internal/scheduler"
)

// Default values applied when the store omits a settings field.
const (
	DefaultSiteTitle           = "設備借用預約系統"
	DefaultBookingWindowDays   = scheduler.DefaultBookingWindowDays
	DefaultAppointmentDuration = 40
	DefaultBreakMinutes        = 10
)

// Settings is the site configuration held by the store.
type Settings struct {
	SiteTitle           string                    `json:"siteTitle"`
	SheetID             string                    `json:"googleSheetUrl"`
	BookingWindowDays   scheduler.Number          `json:"bookingWindowDays"`
	AppointmentDuration scheduler.Number          `json:"appointmentDuration"`
	DefaultBreakMinutes scheduler.Number          `json:"defaultBreakMinutes"`
	Equipment           []scheduler.Equipment     `json:"equipment"`
	WeeklyAvailability  period.WeeklyAvailability `json:"weeklyAvailability"`
	Periods             []period.Period           `json:"periods"`
}

// DefaultSettings returns the configuration used before a store is connected.
func DefaultSettings() Settings {
	return Settings{
		SiteTitle:           DefaultSiteTitle,
		BookingWindowDays:   DefaultBookingWindowDays,
		AppointmentDuration: DefaultAppointmentDuration,
		DefaultBreakMinutes: DefaultBreakMinutes,
		Equipment:           []scheduler.Equipment{},
		WeeklyAvailability:  period.DefaultWeeklyAvailability(),
		Periods:             []period.Period{},
	}
}

// SetupMode reports whether no store sheet has been configured yet.
func (s Settings) SetupMode() bool {
	return s.SheetID == ""
}

// FindEquipment returns the equipment with the given id.
func (s Settings) FindEquipment(id string) (scheduler.Equipment, bool) {
	for _, e := range s.Equipment {
		if e.ID == id {
			return e, true
		}
	}
	return scheduler.Equipment{}, false
}

// Clone returns a copy that shares no slices with s.
func (s Settings) Clone() Settings {
	out := s
	out.Equipment = append([]scheduler.Equipment(nil), s.Equipment...)
	out.WeeklyAvailability = s.WeeklyAvailability.Clone()
	out.Periods = append([]period.Period(nil), s.Periods...)
	return out
}
