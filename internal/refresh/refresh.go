// Package refresh periodically re-reads the booking snapshot from the store
// so statuses reflect reservations made by other clients.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/equipment-booking/internal/booking"
)

// DefaultTimeout bounds a single scheduled refresh.
const DefaultTimeout = 30 * time.Second

// Refresher reloads the snapshot.
type Refresher interface {
	Refresh(ctx context.Context) (*booking.Snapshot, error)
}

// Scheduler runs Refresh on a cron schedule. A refresh still running when the
// next tick fires causes that tick to be skipped.
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	timeout   time.Duration
	logger    *slog.Logger
}

// New parses spec (standard five field syntax or a descriptor such as
// "@every 5m") and registers the refresh job. The scheduler is not started.
func New(spec string, loc *time.Location, refresher Refresher, timeout time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if refresher == nil {
		return nil, errors.New("refresh: refresher is nil")
	}
	if loc == nil {
		loc = time.Local
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	logger = logger.With("component", "refresh")

	cronLogger := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		refresher: refresher,
		timeout:   timeout,
		logger:    logger,
	}
	if _, err := s.cron.AddFunc(spec, func() { _ = s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("refresh: invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running the schedule in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("refresh scheduler started", "next_run", s.Next())
}

// Stop halts the schedule and waits for a running refresh to finish or for ctx
// to end, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next scheduled run, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunOnce refreshes immediately with the configured timeout.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	snapshot, err := s.refresher.Refresh(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "scheduled refresh failed", "error", err)
		return err
	}
	s.logger.DebugContext(ctx, "scheduled refresh completed",
		"reservations", len(snapshot.Reservations),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
