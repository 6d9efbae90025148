// Package scheduler classifies date/period/equipment combinations into booking
// statuses from an immutable snapshot of settings and reservations.
package scheduler

import (
	"errors"
	"time"

	"github.com/example/equipment-booking/internal/calendar"
	"github.com/example/equipment-booking/internal/period"
)

// DefaultBookingWindowDays applies when settings carry no positive window.
const DefaultBookingWindowDays = 30

// SelectAll selects every equipment item in FilterEquipment.
const SelectAll = "all"

// Status is the aggregate classification of a date and period.
type Status string

const (
	// StatusUnavailable means the slot is not offered or lies beyond the booking window.
	StatusUnavailable Status = "unavailable"
	// StatusExpired means the slot start has passed.
	StatusExpired Status = "expired"
	// StatusFullyBooked means the selected equipment has no capacity left.
	StatusFullyBooked Status = "fully-booked"
	// StatusAvailable means at least one unit of the selected equipment is free.
	StatusAvailable Status = "available"
)

// EquipmentStatus is the classification of one equipment item on a slot.
type EquipmentStatus string

const (
	// EquipmentExpired means the slot start has passed.
	EquipmentExpired EquipmentStatus = "expired"
	// EquipmentMyReservation means the user already holds a unit on the slot.
	EquipmentMyReservation EquipmentStatus = "my-reservation"
	// EquipmentReserved means every unit of the item is taken.
	EquipmentReserved EquipmentStatus = "reserved"
	// EquipmentAvailable means at least one unit of the item is free.
	EquipmentAvailable EquipmentStatus = "available"
)

// ErrUnknownPeriod indicates a period index that is not in the period list.
var ErrUnknownPeriod = errors.New("scheduler: unknown period")

// EquipmentSlot is the per-equipment view of a date and period.
type EquipmentSlot struct {
	Equipment     Equipment
	Status        EquipmentStatus
	Reserved      int
	Capacity      int
	Remaining     int
	ReservationID string
}

// PeriodStatus pairs a period with its aggregate status.
type PeriodStatus struct {
	Period period.Period
	Status Status
}

// DayStatus is the aggregate status of every period on one day.
type DayStatus struct {
	Day     calendar.Day
	Periods []PeriodStatus
}

// ResolverInput carries the snapshot a Resolver classifies against.
type ResolverInput struct {
	Availability      period.WeeklyAvailability
	Periods           []period.Period
	Equipment         []Equipment
	BookingWindowDays int
	Reservations      []Reservation
	Location          *time.Location
	Now               func() time.Time
}

// Resolver answers status queries. It keeps no state besides its inputs, so
// every answer reflects the snapshot it was built from.
type Resolver struct {
	availability period.WeeklyAvailability
	periods      []period.Period
	equipment    []Equipment
	windowDays   int
	index        *CapacityIndex
	location     *time.Location
	now          func() time.Time
}

// NewResolver builds a resolver and its capacity index.
func NewResolver(in ResolverInput) *Resolver {
	loc := in.Location
	if loc == nil {
		loc = time.Local
	}
	now := in.Now
	if now == nil {
		now = time.Now
	}
	window := in.BookingWindowDays
	if window <= 0 {
		window = DefaultBookingWindowDays
	}
	return &Resolver{
		availability: in.Availability,
		periods:      in.Periods,
		equipment:    in.Equipment,
		windowDays:   window,
		index:        NewCapacityIndex(in.Reservations, loc),
		location:     loc,
		now:          now,
	}
}

// Index exposes the capacity index built for the snapshot.
func (r *Resolver) Index() *CapacityIndex {
	return r.index
}

// Location returns the zone calendar days are interpreted in.
func (r *Resolver) Location() *time.Location {
	return r.location
}

// FilterEquipment returns every equipment item for "" or SelectAll, otherwise
// the item with the given id. The result may be empty.
func (r *Resolver) FilterEquipment(selector string) []Equipment {
	if selector == "" || selector == SelectAll {
		return append([]Equipment(nil), r.equipment...)
	}
	for _, e := range r.equipment {
		if e.ID == selector {
			return []Equipment{e}
		}
	}
	return nil
}

// Resolve classifies a date and period for the equipment filter. The rules are
// evaluated in order and the first match wins.
func (r *Resolver) Resolve(day calendar.Day, periodIndex int, filter []Equipment) Status {
	return r.resolveAt(r.now(), day, periodIndex, filter)
}

func (r *Resolver) resolveAt(now time.Time, day calendar.Day, periodIndex int, filter []Equipment) Status {
	p, ok := period.Find(r.periods, periodIndex)
	if !ok {
		return StatusUnavailable
	}
	template, ok := r.availability.Day(day.Weekday())
	if !ok || !template.IsEnabled {
		return StatusUnavailable
	}
	start := p.StartMinutes()
	if !template.Offers(start) {
		return StatusUnavailable
	}

	if day.At(start, r.location).Before(now) {
		return StatusExpired
	}

	limit := calendar.Today(now, r.location).AddDays(r.windowDays)
	if !day.Before(limit) {
		return StatusUnavailable
	}

	if len(filter) == 0 {
		return StatusUnavailable
	}
	// Repeated ids count once on both sides; the first entry's capacity wins.
	capacity := 0
	ids := make([]string, 0, len(filter))
	seen := make(map[string]struct{}, len(filter))
	for _, e := range filter {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		capacity += e.Capacity.Int()
		ids = append(ids, e.ID)
	}
	if r.index.CountForAny(day, periodIndex, ids) >= capacity {
		return StatusFullyBooked
	}
	return StatusAvailable
}

// ResolveEquipment classifies one equipment item on a slot for userID. The
// weekday and booking window are assumed checked by the caller.
func (r *Resolver) ResolveEquipment(day calendar.Day, periodIndex int, equipment Equipment, userID string) (EquipmentSlot, error) {
	p, ok := period.Find(r.periods, periodIndex)
	if !ok {
		return EquipmentSlot{}, ErrUnknownPeriod
	}

	capacity := equipment.Capacity.Int()
	reserved := r.index.Count(day, periodIndex, equipment.ID)
	slot := EquipmentSlot{
		Equipment: equipment,
		Reserved:  reserved,
		Capacity:  capacity,
	}

	switch {
	case day.At(p.StartMinutes(), r.location).Before(r.now()):
		slot.Status = EquipmentExpired
	default:
		if id, mine := r.index.HeldBy(day, periodIndex, equipment.ID, userID); mine {
			slot.Status = EquipmentMyReservation
			slot.ReservationID = id
		} else if reserved >= capacity {
			slot.Status = EquipmentReserved
		} else {
			slot.Status = EquipmentAvailable
			slot.Remaining = capacity - reserved
		}
	}
	return slot, nil
}

// ResolveAllEquipment runs ResolveEquipment for every equipment item.
func (r *Resolver) ResolveAllEquipment(day calendar.Day, periodIndex int, userID string) ([]EquipmentSlot, error) {
	out := make([]EquipmentSlot, 0, len(r.equipment))
	for _, e := range r.equipment {
		slot, err := r.ResolveEquipment(day, periodIndex, e, userID)
		if err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	return out, nil
}

// DayView resolves every period of one day against a single clock reading.
func (r *Resolver) DayView(day calendar.Day, filter []Equipment) DayStatus {
	return r.dayViewAt(r.now(), day, filter)
}

func (r *Resolver) dayViewAt(now time.Time, day calendar.Day, filter []Equipment) DayStatus {
	view := DayStatus{Day: day, Periods: make([]PeriodStatus, 0, len(r.periods))}
	for _, p := range r.periods {
		view.Periods = append(view.Periods, PeriodStatus{Period: p, Status: r.resolveAt(now, day, p.Index, filter)})
	}
	return view
}

// MonthView resolves every day of a month.
func (r *Resolver) MonthView(year int, month time.Month, filter []Equipment) []DayStatus {
	now := r.now()
	days := calendar.DaysInMonth(year, month)
	out := make([]DayStatus, 0, len(days))
	for _, d := range days {
		out = append(out, r.dayViewAt(now, d, filter))
	}
	return out
}

// IsExpired reports whether a reservation's slot start has passed. A period
// missing from the list is treated as starting at midnight.
func (r *Resolver) IsExpired(res Reservation) bool {
	day, err := calendar.NormalizeStoredDate(res.Date, r.location)
	if err != nil {
		return false
	}
	start := 0
	if p, ok := period.Find(r.periods, res.Period.Int()); ok {
		start = p.StartMinutes()
	}
	return day.At(start, r.location).Before(r.now())
}
