package application

import (
	"sync/atomic"

	"github.com/example/equipment-booking/internal/booking"
)

// SnapshotHolder owns the current snapshot. Readers get the value that was
// current at the time of the call; writers replace it whole.
type SnapshotHolder struct {
	current atomic.Pointer[booking.Snapshot]
}

// NewSnapshotHolder returns a holder seeded with initial, which may be nil.
func NewSnapshotHolder(initial *booking.Snapshot) *SnapshotHolder {
	h := &SnapshotHolder{}
	if initial != nil {
		h.current.Store(initial)
	}
	return h
}

// Load returns the current snapshot or nil when none has been stored.
func (h *SnapshotHolder) Load() *booking.Snapshot {
	if h == nil {
		return nil
	}
	return h.current.Load()
}

// Replace swaps in next. A nil snapshot is ignored so a failed call can never
// clear the previous value.
func (h *SnapshotHolder) Replace(next *booking.Snapshot) {
	if h == nil || next == nil {
		return
	}
	h.current.Store(next)
}

// ReplaceIfEmpty stores next only when no snapshot is held yet.
func (h *SnapshotHolder) ReplaceIfEmpty(next *booking.Snapshot) bool {
	if h == nil || next == nil {
		return false
	}
	return h.current.CompareAndSwap(nil, next)
}
