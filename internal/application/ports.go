package application

import (
	"context"

	"github.com/example/equipment-booking/internal/booking"
)

// Store is the authoritative reservation store.
type Store interface {
	FetchAll(ctx context.Context) (*booking.Snapshot, error)
	Mutate(ctx context.Context, request booking.MutationRequest) (booking.Response, error)
}

// SnapshotCache keeps the last good snapshot across restarts. LoadSnapshot
// returns persistence.ErrNotFound when nothing has been saved.
type SnapshotCache interface {
	SaveSnapshot(ctx context.Context, snapshot *booking.Snapshot) error
	LoadSnapshot(ctx context.Context) (*booking.Snapshot, error)
}
