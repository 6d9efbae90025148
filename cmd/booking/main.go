package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/equipment-booking/internal/application"
	"github.com/example/equipment-booking/internal/booking"
	"github.com/example/equipment-booking/internal/config"
	httptransport "github.com/example/equipment-booking/internal/http"
	"github.com/example/equipment-booking/internal/logging"
	"github.com/example/equipment-booking/internal/persistence/sqlite"
	"github.com/example/equipment-booking/internal/persistence/sqlite/migration"
	"github.com/example/equipment-booking/internal/refresh"
	"github.com/example/equipment-booking/internal/store"
	"github.com/example/equipment-booking/internal/store/memory"
	"github.com/example/equipment-booking/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  telemetry.ServiceName,
		OTLPEndpoint: cfg.OTelEndpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	wired, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer wired.Close()

	if _, err := wired.services.bookings.Refresh(ctx); err != nil {
		logger.Warn("initial refresh failed", "error", err, "error_kind", application.ErrorKind(err))
	}

	if wired.refresher != nil {
		wired.refresher.Start()
		logger.Info("periodic refresh scheduled", "cron", cfg.RefreshCron, "next", wired.refresher.Next())
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := wired.refresher.Stop(stopCtx); err != nil {
				logger.Error("failed to stop refresh scheduler", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           wired.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("booking API listening", "addr", server.Addr, "store_mode", cfg.StoreMode, "timezone", cfg.Timezone)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server encountered error: %w", err)
	}
	return nil
}

type services struct {
	bookings *application.BookingService
	settings *application.SettingsService
	auth     *application.AuthService
	exports  *application.ExportService
}

// app holds the wired components of one process.
type app struct {
	services  services
	handler   http.Handler
	refresher *refresh.Scheduler
	closers   []func() error
	logger    *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}

	setupHash, err := application.CreatePasswordHash(cfg.SetupPassword, application.DefaultArgon2idParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash setup password: %w", err)
	}

	st, err := newStore(cfg, setupHash, logger)
	if err != nil {
		return nil, err
	}

	var cache application.SnapshotCache
	if cfg.SQLiteDSN != "" {
		pool, err := sqlite.NewConnectionPool(ctx, migration.DefaultSQLiteConfig(cfg.SQLiteDSN), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot cache: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		cache = sqlite.NewSnapshotRepository(pool)
	}

	holder := application.NewSnapshotHolder(nil)
	bookings := application.NewBookingServiceWithLogger(st, holder, cache, cfg.Location, time.Now, logger)
	settings := application.NewSettingsServiceWithLogger(st, bookings, uuid.NewString, logger)
	a.services = services{
		bookings: bookings,
		settings: settings,
		auth: application.NewAuthServiceWithLogger(st, settings,
			application.SetupAccount{Account: cfg.SetupAccount, PasswordHash: setupHash},
			application.VerifyPassword, logger),
		exports: application.NewExportServiceWithLogger(bookings, logger),
	}

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Auth:     httptransport.NewAuthHandler(a.services.auth, logger),
		Bookings: httptransport.NewBookingHandler(bookings, logger),
		Settings: httptransport.NewSettingsHandler(settings, logger),
		Exports:  httptransport.NewExportHandler(a.services.exports, logger),
		Health:   bookings,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.Tracing(telemetry.ServiceName),
			httptransport.RequestID,
			httptransport.RequestLogger(logger),
			httptransport.Identity,
		},
	})

	if cfg.RefreshCron != "" {
		a.refresher, err = refresh.New(cfg.RefreshCron, cfg.Location, bookings, cfg.StoreTimeout*2, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to release resource", "error", err)
		}
	}
	a.closers = nil
}

func newStore(cfg config.Config, setupHash string, logger *slog.Logger) (application.Store, error) {
	switch cfg.StoreMode {
	case config.StoreModeMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.New(
			memory.WithLocation(cfg.Location),
			memory.WithPasswordVerifier(memory.PasswordVerifier(application.VerifyPassword)),
			memory.WithAccounts(memory.Account{
				Account:  cfg.SetupAccount,
				Password: setupHash,
				Name:     application.SetupAdminName,
				Role:     booking.RoleAdmin,
			}),
		), nil
	default:
		client, err := store.NewHTTPClient(cfg.StoreURL, cfg.StoreTimeout, store.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create store client: %w", err)
		}
		return client, nil
	}
}
