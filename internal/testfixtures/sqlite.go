package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/equipment-booking/internal/persistence"
	"github.com/example/equipment-booking/internal/persistence/sqlite"
	"github.com/example/equipment-booking/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides a snapshot repository backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Snapshots persistence.SnapshotRepository
	Path      string

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// also registers a cleanup callback with tb.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()
	return OpenSQLiteHarness(tb, filepath.Join(tb.TempDir(), "booking-cache.db"))
}

// OpenSQLiteHarness opens (or reopens) the database at path.
func OpenSQLiteHarness(tb testing.TB, path string) *SQLiteHarness {
	tb.Helper()

	pool, err := sqlite.NewConnectionPool(context.Background(), migration.DefaultSQLiteConfig(path), nil)
	if err != nil {
		tb.Fatalf("failed to open snapshot cache: %v", err)
	}

	harness := &SQLiteHarness{
		Snapshots: sqlite.NewSnapshotRepository(pool),
		Path:      path,
		cleanup: func() {
			_ = pool.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}
