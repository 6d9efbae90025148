package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/equipment-booking/internal/booking"
	"github.com/example/equipment-booking/internal/persistence"
)

// SnapshotRepository implements persistence.SnapshotRepository with a single
// row table holding the last fetched snapshot.
type SnapshotRepository struct {
	pool *ConnectionPool
	now  func() time.Time
}

var _ persistence.SnapshotRepository = (*SnapshotRepository)(nil)

// NewSnapshotRepository creates a SQLite snapshot repository.
func NewSnapshotRepository(pool *ConnectionPool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool, now: time.Now}
}

// SaveSnapshot replaces the stored snapshot.
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, snapshot *booking.Snapshot) error {
	record, err := persistence.NewSnapshotRecord(snapshot, r.now())
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO snapshots (id, settings, reservations, fetched_at, saved_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			settings = excluded.settings,
			reservations = excluded.reservations,
			fetched_at = excluded.fetched_at,
			saved_at = excluded.saved_at`

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			record.Settings,
			record.Reservations,
			record.FetchedAt.Format(time.RFC3339Nano),
			record.SavedAt.Format(time.RFC3339Nano),
		)
		return mapError(err)
	})
}

// LoadSnapshot returns the stored snapshot or persistence.ErrNotFound.
func (r *SnapshotRepository) LoadSnapshot(ctx context.Context) (*booking.Snapshot, error) {
	const query = `SELECT settings, reservations, fetched_at, saved_at FROM snapshots WHERE id = 1`

	var (
		record             persistence.SnapshotRecord
		fetchedAt, savedAt string
	)
	err := r.pool.WithReadOnlyTransaction(ctx, func(tx *sql.Tx) error {
		return mapError(tx.QueryRowContext(ctx, query).Scan(&record.Settings, &record.Reservations, &fetchedAt, &savedAt))
	})
	if err != nil {
		return nil, err
	}

	if record.FetchedAt, err = time.Parse(time.RFC3339Nano, fetchedAt); err != nil {
		return nil, fmt.Errorf("%w: fetched_at: %v", persistence.ErrCorruptRecord, err)
	}
	if record.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
		return nil, fmt.Errorf("%w: saved_at: %v", persistence.ErrCorruptRecord, err)
	}
	return record.Snapshot()
}
