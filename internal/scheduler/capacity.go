package scheduler

import (
	"time"

	"github.com/example/equipment-booking/internal/calendar"
)

type slotKey struct {
	day         calendar.Day
	period      int
	equipmentID string
}

// CapacityIndex counts reservations per date, period and equipment.
// It is built once from a snapshot and never updated in place.
type CapacityIndex struct {
	counts  map[slotKey]int
	holders map[slotKey]map[string]string
	skipped int
}

// NewCapacityIndex indexes reservations after normalizing each stored date to
// a calendar day in loc. Reservations whose date cannot be read are skipped.
func NewCapacityIndex(reservations []Reservation, loc *time.Location) *CapacityIndex {
	idx := &CapacityIndex{
		counts:  make(map[slotKey]int, len(reservations)),
		holders: make(map[slotKey]map[string]string, len(reservations)),
	}
	for _, r := range reservations {
		day, err := calendar.NormalizeStoredDate(r.Date, loc)
		if err != nil {
			idx.skipped++
			continue
		}
		key := slotKey{day: day, period: r.Period.Int(), equipmentID: r.EquipmentID}
		idx.counts[key]++

		users := idx.holders[key]
		if users == nil {
			users = make(map[string]string, 1)
			idx.holders[key] = users
		}
		if _, exists := users[r.UserID]; !exists {
			users[r.UserID] = r.ID
		}
	}
	return idx
}

// Count returns the number of reservations for one equipment item.
func (x *CapacityIndex) Count(day calendar.Day, period int, equipmentID string) int {
	if x == nil {
		return 0
	}
	return x.counts[slotKey{day: day, period: period, equipmentID: equipmentID}]
}

// CountForAny sums Count over the set of equipment ids. Repeated ids count once.
func (x *CapacityIndex) CountForAny(day calendar.Day, period int, equipmentIDs []string) int {
	if x == nil {
		return 0
	}
	seen := make(map[string]struct{}, len(equipmentIDs))
	total := 0
	for _, id := range equipmentIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		total += x.Count(day, period, id)
	}
	return total
}

// HeldBy returns the id of a reservation userID holds on the slot, if any.
func (x *CapacityIndex) HeldBy(day calendar.Day, period int, equipmentID, userID string) (string, bool) {
	if x == nil || userID == "" {
		return "", false
	}
	id, ok := x.holders[slotKey{day: day, period: period, equipmentID: equipmentID}][userID]
	return id, ok
}

// Skipped reports how many reservations were dropped for unreadable dates.
func (x *CapacityIndex) Skipped() int {
	if x == nil {
		return 0
	}
	return x.skipped
}
