package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/equipment-booking/internal/booking"
	"github.com/example/equipment-booking/internal/scheduler"
)

// SnapshotRecord is the stored form of a booking snapshot. Settings and
// reservations are kept as the JSON the store itself speaks.
type SnapshotRecord struct {
	Settings     string
	Reservations string
	FetchedAt    time.Time
	SavedAt      time.Time
}

// NewSnapshotRecord encodes a snapshot for storage.
func NewSnapshotRecord(snapshot *booking.Snapshot, savedAt time.Time) (SnapshotRecord, error) {
	if snapshot == nil {
		return SnapshotRecord{}, fmt.Errorf("persistence: nil snapshot")
	}
	settings, err := json.Marshal(snapshot.Settings)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("persistence: encode settings: %w", err)
	}
	reservations, err := json.Marshal(snapshot.Reservations)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("persistence: encode reservations: %w", err)
	}
	return SnapshotRecord{
		Settings:     string(settings),
		Reservations: string(reservations),
		FetchedAt:    snapshot.FetchedAt.UTC(),
		SavedAt:      savedAt.UTC(),
	}, nil
}

// Snapshot decodes the record. Periods are regenerated rather than trusted.
func (r SnapshotRecord) Snapshot() (*booking.Snapshot, error) {
	settings, err := booking.DecodeSettings([]byte(r.Settings))
	if err != nil {
		return nil, fmt.Errorf("%w: settings: %v", ErrCorruptRecord, err)
	}
	var reservations []scheduler.Reservation
	if err := json.Unmarshal([]byte(r.Reservations), &reservations); err != nil {
		return nil, fmt.Errorf("%w: reservations: %v", ErrCorruptRecord, err)
	}
	return booking.NewSnapshot(settings, reservations, r.FetchedAt), nil
}
