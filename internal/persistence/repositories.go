package persistence

import (
	"context"

	"github.com/example/equipment-booking/internal/booking"
)

// SnapshotRepository stores the most recent booking snapshot. LoadSnapshot
// returns ErrNotFound when nothing has been saved.
type SnapshotRepository interface {
	SaveSnapshot(ctx context.Context, snapshot *booking.Snapshot) error
	LoadSnapshot(ctx context.Context) (*booking.Snapshot, error)
}
