package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/equipment-booking/internal/booking"
	"github.com/example/equipment-booking/internal/period"
)

// SaveSettingsParams wraps the settings submitted by an administrator.
type SaveSettingsParams struct {
	User     booking.User
	Settings booking.Settings
}

// SettingsService validates and stores site settings.
type SettingsService struct {
	store       Store
	bookings    *BookingService
	idGenerator func() string
	logger      *slog.Logger
}

// NewSettingsService constructs a settings service. Successful saves install
// the returned snapshot through bookings.
func NewSettingsService(store Store, bookings *BookingService, idGenerator func() string) *SettingsService {
	return NewSettingsServiceWithLogger(store, bookings, idGenerator, nil)
}

// NewSettingsServiceWithLogger constructs a settings service with a specified logger.
func NewSettingsServiceWithLogger(store Store, bookings *BookingService, idGenerator func() string, logger *slog.Logger) *SettingsService {
	if idGenerator == nil {
		idGenerator = func() string { return fmt.Sprintf("equip_%d", time.Now().UnixNano()) }
	}
	return &SettingsService{store: store, bookings: bookings, idGenerator: idGenerator, logger: defaultLogger(logger)}
}

func (s *SettingsService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SettingsService", operation, attrs...)
}

// Current returns the held settings, or the defaults when nothing is loaded.
func (s *SettingsService) Current(ctx context.Context) booking.Settings {
	if s == nil || s.bookings == nil {
		return booking.DefaultSettings()
	}
	snap, err := s.bookings.Snapshot(ctx)
	if err != nil {
		return booking.DefaultSettings()
	}
	return snap.Settings.Clone()
}

// SetupMode reports whether the held snapshot still lacks a store sheet id.
// Without a held snapshot the mode is unknown and ErrSnapshotUnavailable is
// returned.
func (s *SettingsService) SetupMode(ctx context.Context) (bool, error) {
	if s == nil || s.bookings == nil {
		return false, ErrSnapshotUnavailable
	}
	snap, err := s.bookings.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	return snap.Settings.SetupMode(), nil
}

// Save validates settings, assigns ids to new equipment and stores them.
func (s *SettingsService) Save(ctx context.Context, params SaveSettingsParams) (snapshot *booking.Snapshot, err error) {
	if s == nil {
		err = fmt.Errorf("SettingsService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Save", "user_id", params.User.Account)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to save settings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "settings saved",
			"equipment", len(snapshot.Settings.Equipment),
			"periods", len(snapshot.Settings.Periods),
		)
	}()

	setupMode, err := s.SetupMode(ctx)
	if err != nil {
		return
	}
	settings := s.normalize(params.Settings)
	if vErr := validateSettings(settings, setupMode); vErr.HasErrors() {
		err = vErr
		return
	}
	if s.store == nil || s.bookings == nil {
		err = fmt.Errorf("store not configured")
		return
	}

	snapshot, err = s.bookings.mutate(ctx, logger, booking.SaveSettings(settings))
	return
}

// NextRange appends the suggested next range to weekday in draft.
func (s *SettingsService) NextRange(draft booking.Settings, weekday time.Weekday) (booking.Settings, error) {
	out := draft.Clone()
	for i := range out.WeeklyAvailability {
		if out.WeeklyAvailability[i].DayOfWeek != weekday {
			continue
		}
		day := &out.WeeklyAvailability[i]
		day.Slots = append(day.Slots, period.NextRange(day.Slots, out.AppointmentDuration.Int(), out.DefaultBreakMinutes.Int()))
		return out, nil
	}
	return draft, ErrNotFound
}

// CopyRanges copies the ranges of weekday onto every other enabled day of draft.
func (s *SettingsService) CopyRanges(draft booking.Settings, weekday time.Weekday) (booking.Settings, error) {
	if _, ok := draft.WeeklyAvailability.Day(weekday); !ok {
		return draft, ErrNotFound
	}
	out := draft.Clone()
	out.WeeklyAvailability = draft.WeeklyAvailability.CopyRanges(weekday)
	return out, nil
}

func (s *SettingsService) normalize(in booking.Settings) booking.Settings {
	out := in.Clone()
	out.SiteTitle = strings.TrimSpace(out.SiteTitle)
	if out.SiteTitle == "" {
		out.SiteTitle = booking.DefaultSiteTitle
	}
	out.SheetID = strings.TrimSpace(out.SheetID)
	for i := range out.Equipment {
		out.Equipment[i].Name = strings.TrimSpace(out.Equipment[i].Name)
		if strings.TrimSpace(out.Equipment[i].ID) == "" {
			out.Equipment[i].ID = s.idGenerator()
		}
	}
	out.Periods = period.Generate(out.WeeklyAvailability, out.AppointmentDuration.Int())
	if out.Periods == nil {
		out.Periods = []period.Period{}
	}
	return out
}

func validateSettings(settings booking.Settings, setupMode bool) *ValidationError {
	vErr := &ValidationError{}
	if setupMode && settings.SheetID == "" {
		vErr.add("googleSheetUrl", "sheet id is required during setup")
	}
	if settings.AppointmentDuration.Int() <= 0 {
		vErr.add("appointmentDuration", "duration must be positive")
	}
	if settings.BookingWindowDays.Int() <= 0 {
		vErr.add("bookingWindowDays", "booking window must be positive")
	}
	if settings.DefaultBreakMinutes.Int() < 0 {
		vErr.add("defaultBreakMinutes", "break must not be negative")
	}

	seen := make(map[string]bool, len(settings.Equipment))
	for i, e := range settings.Equipment {
		if e.Name == "" {
			vErr.add(fmt.Sprintf("equipment[%d].name", i), "name is required")
		}
		if e.Capacity.Int() < 1 {
			vErr.add(fmt.Sprintf("equipment[%d].total", i), "capacity must be at least 1")
		}
		if seen[e.ID] {
			vErr.add(fmt.Sprintf("equipment[%d].id", i), "duplicate equipment id")
		}
		seen[e.ID] = true
	}

	weekdays := make(map[time.Weekday]bool, 7)
	for i, day := range settings.WeeklyAvailability {
		if day.DayOfWeek < time.Sunday || day.DayOfWeek > time.Saturday || weekdays[day.DayOfWeek] {
			vErr.add(fmt.Sprintf("weeklyAvailability[%d].dayOfWeek", i), "weekday must be unique and between 0 and 6")
		}
		weekdays[day.DayOfWeek] = true
		for j, r := range day.Slots {
			if !r.Valid() {
				vErr.add(fmt.Sprintf("weeklyAvailability[%d].slots[%d]", i, j), "range must be HH:MM with start before end")
			}
		}
	}
	return vErr
}
