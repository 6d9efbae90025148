package migration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Manager applies pending migrations in version order.
type Manager struct {
	executor   Executor
	migrations []Migration
	logger     *slog.Logger
}

// NewManager creates a Manager for the given migrations, which must already be
// ordered as Scan returns them.
func NewManager(executor Executor, migrations []Migration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Manager{
		executor:   executor,
		migrations: migrations,
		logger:     logger.With("component", "migration"),
	}
}

// Run applies every migration that is not yet recorded. An applied migration
// whose checksum no longer matches its file fails the run.
func (m *Manager) Run(ctx context.Context) error {
	started := time.Now()
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return fmt.Errorf("failed to initialize version table: %w", err)
	}

	pending, err := m.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		m.logger.DebugContext(ctx, "schema up to date", "migrations", len(m.migrations))
		return nil
	}

	for i, migration := range pending {
		migrationStarted := time.Now()
		m.logger.InfoContext(ctx, "applying migration",
			"version", migration.Version,
			"description", migration.Description,
			"step", i+1,
			"total", len(pending),
		)
		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			return NewMigrationError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}
		if err := m.executor.RecordMigration(ctx, migration, time.Since(migrationStarted)); err != nil {
			return NewMigrationError(migration.Version, migration.FilePath, "record migration", err)
		}
	}

	m.logger.InfoContext(ctx, "migrations applied",
		"count", len(pending),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return nil
}

// Pending returns migrations that have not been applied yet.
func (m *Manager) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read applied versions: %w", err)
	}
	checksums := make(map[string]string, len(applied))
	for _, a := range applied {
		checksums[a.Version] = a.Checksum
	}

	var pending []Migration
	for _, migration := range m.migrations {
		checksum, ok := checksums[migration.Version]
		if !ok {
			pending = append(pending, migration)
			continue
		}
		if checksum != "" && migration.Checksum != "" && checksum != migration.Checksum {
			return nil, NewMigrationError(migration.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	return pending, nil
}
