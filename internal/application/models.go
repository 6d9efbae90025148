package application

import (
	"github.com/example/equipment-booking/internal/booking"
	"github.com/example/equipment-booking/internal/calendar"
	"github.com/example/equipment-booking/internal/period"
	"github.com/example/equipment-booking/internal/scheduler"
)

// SlotView is the drill-down of one date and period.
type SlotView struct {
	Day       calendar.Day
	Period    period.Period
	Status    scheduler.Status
	Equipment []scheduler.EquipmentSlot
}

// ReservationView decorates a stored reservation with derived fields.
// Day is zero and Expired false when the stored date cannot be read.
type ReservationView struct {
	scheduler.Reservation
	Day     calendar.Day
	Slot    period.Period
	Expired bool
}

// ConfirmParams wraps the data required to book a slot.
type ConfirmParams struct {
	User        booking.User
	Date        calendar.Day
	Period      int
	EquipmentID string
}

// CancelParams wraps the data required to cancel a reservation.
type CancelParams struct {
	User          booking.User
	ReservationID string
}

// SortKey selects the column the reservation list is ordered by.
type SortKey string

const (
	SortByDate      SortKey = "date"
	SortByPeriod    SortKey = "period"
	SortByUserName  SortKey = "userName"
	SortByEquipment SortKey = "equipmentName"
)

// SortDirection is ascending or descending.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// ListReservationsParams selects ordering for the reservation list.
type ListReservationsParams struct {
	SortKey   SortKey
	Direction SortDirection
}
