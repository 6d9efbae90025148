package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/equipment-booking/internal/booking"
	"github.com/example/equipment-booking/internal/calendar"
	"github.com/example/equipment-booking/internal/period"
	"github.com/example/equipment-booking/internal/persistence"
	"github.com/example/equipment-booking/internal/scheduler"
)

// BookingService answers availability queries from the current snapshot and
// forwards reservation mutations to the store.
type BookingService struct {
	store    Store
	holder   *SnapshotHolder
	cache    SnapshotCache
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewBookingService constructs a booking service with the provided dependencies.
func NewBookingService(store Store, holder *SnapshotHolder, cache SnapshotCache, location *time.Location, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(store, holder, cache, location, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(store Store, holder *SnapshotHolder, cache SnapshotCache, location *time.Location, now func() time.Time, logger *slog.Logger) *BookingService {
	if holder == nil {
		holder = NewSnapshotHolder(nil)
	}
	if location == nil {
		location = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		store:    store,
		holder:   holder,
		cache:    cache,
		location: location,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// Location returns the zone calendar days are interpreted in.
func (s *BookingService) Location() *time.Location {
	return s.location
}

// Refresh fetches the full snapshot and replaces the held one. When the store
// cannot be read and nothing is held yet, the cached snapshot is loaded so
// queries keep working; the fetch error is still returned.
func (s *BookingService) Refresh(ctx context.Context) (snapshot *booking.Snapshot, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("store not configured")
		return
	}

	logger := s.loggerWith(ctx, "Refresh")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to refresh snapshot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "snapshot refreshed",
			"reservations", len(snapshot.Reservations),
			"periods", len(snapshot.Settings.Periods),
		)
	}()

	snapshot, err = s.store.FetchAll(ctx)
	if err != nil {
		s.fallBackToCache(ctx, logger)
		snapshot = nil
		return
	}

	s.install(ctx, logger, snapshot)
	return
}

func (s *BookingService) fallBackToCache(ctx context.Context, logger *slog.Logger) {
	if s.cache == nil || s.holder.Load() != nil {
		return
	}
	cached, err := s.cache.LoadSnapshot(ctx)
	if err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			logger.WarnContext(ctx, "failed to load cached snapshot", "error", err)
		}
		return
	}
	if s.holder.ReplaceIfEmpty(cached) {
		logger.WarnContext(ctx, "serving cached snapshot", "fetched_at", cached.FetchedAt)
	}
}

func (s *BookingService) install(ctx context.Context, logger *slog.Logger, snapshot *booking.Snapshot) {
	s.holder.Replace(snapshot)
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveSnapshot(ctx, snapshot); err != nil {
		logger.WarnContext(ctx, "failed to cache snapshot", "error", err)
	}
}

// Snapshot returns the current snapshot.
func (s *BookingService) Snapshot(ctx context.Context) (*booking.Snapshot, error) {
	snap := s.holder.Load()
	if snap == nil {
		return nil, ErrSnapshotUnavailable
	}
	return snap, nil
}

// Periods returns the period list of the current snapshot.
func (s *BookingService) Periods(ctx context.Context) ([]period.Period, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Settings.Periods, nil
}

// MonthView classifies every period of every day in the month.
func (s *BookingService) MonthView(ctx context.Context, year int, month time.Month, equipmentSelector string) ([]scheduler.DayStatus, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	r := snap.Resolver(s.location, s.now)
	return r.MonthView(year, month, r.FilterEquipment(equipmentSelector)), nil
}

// DayView classifies every period of one day.
func (s *BookingService) DayView(ctx context.Context, day calendar.Day, equipmentSelector string) (scheduler.DayStatus, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return scheduler.DayStatus{}, err
	}
	r := snap.Resolver(s.location, s.now)
	return r.DayView(day, r.FilterEquipment(equipmentSelector)), nil
}

// SlotView classifies every equipment item on a date and period for user.
func (s *BookingService) SlotView(ctx context.Context, day calendar.Day, periodIndex int, user booking.User) (SlotView, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return SlotView{}, err
	}
	p, ok := snap.Period(periodIndex)
	if !ok {
		return SlotView{}, ErrNotFound
	}
	r := snap.Resolver(s.location, s.now)
	slots, err := r.ResolveAllEquipment(day, periodIndex, user.Account)
	if err != nil {
		return SlotView{}, ErrNotFound
	}
	return SlotView{
		Day:       day,
		Period:    p,
		Status:    r.Resolve(day, periodIndex, r.FilterEquipment(scheduler.SelectAll)),
		Equipment: slots,
	}, nil
}

// Confirm books a slot through the store. Local checks only reject requests
// that can never succeed; capacity is decided by the store.
func (s *BookingService) Confirm(ctx context.Context, params ConfirmParams) (snapshot *booking.Snapshot, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Confirm",
		"user_id", params.User.Account,
		"date", params.Date.String(),
		"period", params.Period,
		"equipment_id", params.EquipmentID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to confirm reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation confirmed")
	}()

	current, err := s.Snapshot(ctx)
	if err != nil {
		return
	}
	if current.Settings.SetupMode() {
		err = ErrSetupRequired
		return
	}

	vErr := &ValidationError{}
	if params.User.Account == "" {
		vErr.add("userId", "user account is required")
	}
	if params.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	p, ok := current.Period(params.Period)
	if !ok {
		vErr.add("period", "period does not exist")
	}
	equipment, found := current.Settings.FindEquipment(params.EquipmentID)
	if !found {
		vErr.add("equipmentId", "equipment does not exist")
	}
	if err = vErr.errOrNil(); err != nil {
		return
	}

	if params.Date.At(p.StartMinutes(), s.location).Before(s.now()) {
		err = ErrSlotExpired
		return
	}
	r := current.Resolver(s.location, s.now)
	if r.Resolve(params.Date, params.Period, []scheduler.Equipment{equipment}) == scheduler.StatusUnavailable {
		vErr.add("date", "slot is not open for booking")
		err = vErr
		return
	}

	request := booking.Confirm(params.User, booking.Slot{Date: params.Date, Period: params.Period, Equipment: equipment})
	snapshot, err = s.mutate(ctx, logger, request)
	return
}

// Cancel deletes a reservation through the store.
func (s *BookingService) Cancel(ctx context.Context, params CancelParams) (snapshot *booking.Snapshot, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Cancel",
		"user_id", params.User.Account,
		"reservation_id", params.ReservationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation cancelled")
	}()

	current, err := s.Snapshot(ctx)
	if err != nil {
		return
	}
	if current.Settings.SetupMode() {
		err = ErrSetupRequired
		return
	}
	reservation, ok := current.FindReservation(params.ReservationID)
	if !ok {
		err = ErrNotFound
		return
	}
	if current.Resolver(s.location, s.now).IsExpired(reservation) {
		err = ErrSlotExpired
		return
	}

	snapshot, err = s.mutate(ctx, logger, booking.Cancel(reservation.ID))
	return
}

// mutate sends request and installs the snapshot carried by the response. The
// held snapshot is untouched on any failure.
func (s *BookingService) mutate(ctx context.Context, logger *slog.Logger, request booking.MutationRequest) (*booking.Snapshot, error) {
	if s.store == nil {
		return nil, fmt.Errorf("store not configured")
	}
	resp, err := s.store.Mutate(ctx, request)
	if err != nil {
		return nil, err
	}
	next, err := booking.DecodeSnapshot(resp.Data, s.now())
	if err != nil {
		return nil, err
	}
	s.install(ctx, logger, next)
	return next, nil
}

// MyReservations lists userID's reservations, newest date first and then by period.
func (s *BookingService) MyReservations(ctx context.Context, userID string) ([]ReservationView, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	views := s.views(snap, func(r scheduler.Reservation) bool { return r.UserID == userID })
	sort.SliceStable(views, func(i, j int) bool {
		if c := views[i].Day.Compare(views[j].Day); c != 0 {
			return c > 0
		}
		return views[i].Period < views[j].Period
	})
	return views, nil
}

// AllReservations lists every reservation ordered by params. The default order
// is date descending.
func (s *BookingService) AllReservations(ctx context.Context, params ListReservationsParams) ([]ReservationView, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	key := params.SortKey
	if key == "" {
		key = SortByDate
	}
	direction := params.Direction
	if direction == "" {
		direction = SortDescending
	}
	if err := validateSort(key, direction); err != nil {
		return nil, err
	}

	views := s.views(snap, nil)
	sort.SliceStable(views, func(i, j int) bool {
		c := compareViews(views[i], views[j], key)
		if direction == SortAscending {
			return c < 0
		}
		return c > 0
	})
	return views, nil
}

func (s *BookingService) views(snap *booking.Snapshot, keep func(scheduler.Reservation) bool) []ReservationView {
	r := snap.Resolver(s.location, s.now)
	out := make([]ReservationView, 0, len(snap.Reservations))
	for _, res := range snap.Reservations {
		if keep != nil && !keep(res) {
			continue
		}
		view := ReservationView{Reservation: res, Expired: r.IsExpired(res)}
		if day, err := booking.ReservationDay(res, s.location); err == nil {
			view.Day = day
		}
		if p, ok := snap.Period(res.Period.Int()); ok {
			view.Slot = p
		}
		out = append(out, view)
	}
	return out
}

func validateSort(key SortKey, direction SortDirection) error {
	vErr := &ValidationError{}
	switch key {
	case SortByDate, SortByPeriod, SortByUserName, SortByEquipment:
	default:
		vErr.add("sort", "unsupported sort key")
	}
	switch direction {
	case SortAscending, SortDescending:
	default:
		vErr.add("direction", "direction must be asc or desc")
	}
	return vErr.errOrNil()
}

func compareViews(a, b ReservationView, key SortKey) int {
	switch key {
	case SortByPeriod:
		return a.Period.Int() - b.Period.Int()
	case SortByUserName:
		return strings.Compare(a.UserName, b.UserName)
	case SortByEquipment:
		return strings.Compare(a.EquipmentName, b.EquipmentName)
	default:
		return a.Day.Compare(b.Day)
	}
}
