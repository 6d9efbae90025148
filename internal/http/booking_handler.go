package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/equipment-booking/internal/application"
	"github.com/example/equipment-booking/internal/booking"
	"github.com/example/equipment-booking/internal/calendar"
	"github.com/example/equipment-booking/internal/period"
	"github.com/example/equipment-booking/internal/scheduler"
)

type bookingService interface {
	Refresh(ctx context.Context) (*booking.Snapshot, error)
	Snapshot(ctx context.Context) (*booking.Snapshot, error)
	Periods(ctx context.Context) ([]period.Period, error)
	MonthView(ctx context.Context, year int, month time.Month, equipmentSelector string) ([]scheduler.DayStatus, error)
	DayView(ctx context.Context, day calendar.Day, equipmentSelector string) (scheduler.DayStatus, error)
	SlotView(ctx context.Context, day calendar.Day, periodIndex int, user booking.User) (application.SlotView, error)
	Confirm(ctx context.Context, params application.ConfirmParams) (*booking.Snapshot, error)
	Cancel(ctx context.Context, params application.CancelParams) (*booking.Snapshot, error)
	MyReservations(ctx context.Context, userID string) ([]application.ReservationView, error)
	AllReservations(ctx context.Context, params application.ListReservationsParams) ([]application.ReservationView, error)
	Location() *time.Location
}

type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
	now       func() time.Time
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base, now: time.Now}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

func (h *BookingHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

// Snapshot returns the held settings and reservations.
func (h *BookingHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		h.log(r.Context(), "Snapshot").ErrorContext(r.Context(), "snapshot unavailable", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, snap)
}

// Refresh reloads the snapshot from the store.
func (h *BookingHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	logger := h.log(r.Context(), "Refresh")
	snap, err := h.service.Refresh(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "refresh failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "snapshot refreshed", "reservations", len(snap.Reservations))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, snap)
}

// Periods lists the generated periods.
func (h *BookingHandler) Periods(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	periods, err := h.service.Periods(r.Context())
	if err != nil {
		h.log(r.Context(), "Periods").ErrorContext(r.Context(), "failed to list periods", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, periodsResponse{Periods: periods})
}

// Calendar returns the month view. month defaults to the current month.
func (h *BookingHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	query := r.URL.Query()
	selector := query.Get("equipment")
	monthParam := strings.TrimSpace(query.Get("month"))
	if monthParam == "" {
		monthParam = h.now().In(h.service.Location()).Format("2006-01")
	}
	year, month, err := calendar.ParseMonth(monthParam)
	if err != nil {
		h.log(r.Context(), "Calendar", "month", monthParam, "error_kind", "bad_request").WarnContext(r.Context(), "invalid month parameter", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMonth)
		return
	}

	days, err := h.service.MonthView(r.Context(), year, month, selector)
	if err != nil {
		h.log(r.Context(), "Calendar", "month", monthParam).ErrorContext(r.Context(), "failed to build month view", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := calendarResponse{Month: monthParam, Equipment: selectorOrAll(selector), Days: make([]dayDTO, 0, len(days))}
	for _, d := range days {
		resp.Days = append(resp.Days, toDayDTO(d))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Day returns the per-period statuses of one date.
func (h *BookingHandler) Day(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	path, _ := SlotPathFromContext(r.Context())
	day, err := calendar.ParseDay(path.Date)
	if err != nil {
		h.log(r.Context(), "Day", "error_kind", "bad_request").WarnContext(r.Context(), "invalid date parameter", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	status, err := h.service.DayView(r.Context(), day, r.URL.Query().Get("equipment"))
	if err != nil {
		h.log(r.Context(), "Day", "date", day.String()).ErrorContext(r.Context(), "failed to build day view", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toDayDTO(status))
}

// Slot returns every equipment item's status on one date and period.
func (h *BookingHandler) Slot(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	path, _ := SlotPathFromContext(r.Context())
	day, err := calendar.ParseDay(path.Date)
	if err != nil {
		h.log(r.Context(), "Slot", "error_kind", "bad_request").WarnContext(r.Context(), "invalid date parameter", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}
	periodIndex, err := strconv.Atoi(path.Period)
	if err != nil {
		h.log(r.Context(), "Slot", "error_kind", "bad_request").WarnContext(r.Context(), "invalid period parameter", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPeriod)
		return
	}

	user, _ := UserFromContext(r.Context())
	view, err := h.service.SlotView(r.Context(), day, periodIndex, user)
	if err != nil {
		h.log(r.Context(), "Slot", "date", day.String(), "period", periodIndex).ErrorContext(r.Context(), "failed to build slot view", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSlotDTO(view))
}

// ListReservations returns every reservation for administrators.
func (h *BookingHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	if _, ok := h.responder.requireAdmin(r.Context(), w); !ok {
		return
	}

	query := r.URL.Query()
	params := application.ListReservationsParams{
		SortKey:   application.SortKey(query.Get("sort")),
		Direction: application.SortDirection(query.Get("direction")),
	}
	views, err := h.service.AllReservations(r.Context(), params)
	if err != nil {
		h.log(r.Context(), "ListReservations").ErrorContext(r.Context(), "failed to list reservations", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationsResponse(views))
}

// MyReservations returns the signed-in user's reservations.
func (h *BookingHandler) MyReservations(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	user, ok := h.responder.requireUser(r.Context(), w)
	if !ok {
		return
	}

	views, err := h.service.MyReservations(r.Context(), user.Account)
	if err != nil {
		h.log(r.Context(), "MyReservations").ErrorContext(r.Context(), "failed to list reservations", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationsResponse(views))
}

// Create books a slot for the signed-in user and returns the new snapshot.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	user, ok := h.responder.requireUser(r.Context(), w)
	if !ok {
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reservation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	day, err := calendar.ParseDay(req.Date)
	if err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "invalid reservation date", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	logger := h.log(r.Context(), "Create", "date", day.String(), "period", req.Period, "equipment_id", req.EquipmentID)
	snap, err := h.service.Confirm(r.Context(), application.ConfirmParams{
		User:        user,
		Date:        day,
		Period:      req.Period,
		EquipmentID: strings.TrimSpace(req.EquipmentID),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, snap)
}

// Delete cancels a reservation and returns the new snapshot.
func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	user, ok := h.responder.requireUser(r.Context(), w)
	if !ok {
		return
	}

	id, _ := ReservationIDFromContext(r.Context())
	id = strings.TrimSpace(id)
	if id == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").WarnContext(r.Context(), "missing reservation id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingReservation)
		return
	}

	logger := h.log(r.Context(), "Delete", "reservation_id", id)
	snap, err := h.service.Cancel(r.Context(), application.CancelParams{User: user, ReservationID: id})
	if err != nil {
		logger.ErrorContext(r.Context(), "cancellation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, snap)
}

type reservationRequest struct {
	Date        string `json:"date"`
	Period      int    `json:"period"`
	EquipmentID string `json:"equipmentId"`
}

type periodsResponse struct {
	Periods []period.Period `json:"periods"`
}

type calendarResponse struct {
	Month     string   `json:"month"`
	Equipment string   `json:"equipment"`
	Days      []dayDTO `json:"days"`
}

type dayDTO struct {
	Date    string            `json:"date"`
	Weekday int               `json:"weekday"`
	Periods []periodStatusDTO `json:"periods"`
}

type periodStatusDTO struct {
	Period int              `json:"period"`
	Start  string           `json:"start"`
	End    string           `json:"end"`
	Status scheduler.Status `json:"status"`
}

type slotDTO struct {
	Date      string             `json:"date"`
	Period    period.Period      `json:"period"`
	Status    scheduler.Status   `json:"status"`
	Equipment []equipmentSlotDTO `json:"equipment"`
}

type equipmentSlotDTO struct {
	ID            string                    `json:"id"`
	Name          string                    `json:"name"`
	Status        scheduler.EquipmentStatus `json:"status"`
	Reserved      int                       `json:"reserved"`
	Capacity      int                       `json:"capacity"`
	Remaining     int                       `json:"remaining"`
	ReservationID string                    `json:"reservationId,omitempty"`
}

type reservationsResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}

type reservationDTO struct {
	ID            string `json:"id"`
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
	EquipmentID   string `json:"equipmentId"`
	EquipmentName string `json:"equipmentName"`
	Date          string `json:"date"`
	Period        int    `json:"period"`
	Start         string `json:"start,omitempty"`
	End           string `json:"end,omitempty"`
	Timestamp     string `json:"timestamp"`
	Expired       bool   `json:"expired"`
}

func selectorOrAll(selector string) string {
	if strings.TrimSpace(selector) == "" {
		return scheduler.SelectAll
	}
	return selector
}

func toDayDTO(d scheduler.DayStatus) dayDTO {
	out := dayDTO{
		Date:    d.Day.String(),
		Weekday: int(d.Day.Weekday()),
		Periods: make([]periodStatusDTO, 0, len(d.Periods)),
	}
	for _, p := range d.Periods {
		out.Periods = append(out.Periods, periodStatusDTO{
			Period: p.Period.Index,
			Start:  p.Period.Start,
			End:    p.Period.End,
			Status: p.Status,
		})
	}
	return out
}

func toSlotDTO(view application.SlotView) slotDTO {
	out := slotDTO{
		Date:      view.Day.String(),
		Period:    view.Period,
		Status:    view.Status,
		Equipment: make([]equipmentSlotDTO, 0, len(view.Equipment)),
	}
	for _, e := range view.Equipment {
		out.Equipment = append(out.Equipment, equipmentSlotDTO{
			ID:            e.Equipment.ID,
			Name:          e.Equipment.Name,
			Status:        e.Status,
			Reserved:      e.Reserved,
			Capacity:      e.Capacity,
			Remaining:     e.Remaining,
			ReservationID: e.ReservationID,
		})
	}
	return out
}

func toReservationsResponse(views []application.ReservationView) reservationsResponse {
	out := reservationsResponse{Reservations: make([]reservationDTO, 0, len(views))}
	for _, v := range views {
		date := v.Date
		if !v.Day.IsZero() {
			date = v.Day.String()
		}
		out.Reservations = append(out.Reservations, reservationDTO{
			ID:            v.ID,
			UserID:        v.UserID,
			UserName:      v.UserName,
			EquipmentID:   v.EquipmentID,
			EquipmentName: v.EquipmentName,
			Date:          date,
			Period:        v.Period.Int(),
			Start:         v.Slot.Start,
			End:           v.Slot.End,
			Timestamp:     v.Timestamp,
			Expired:       v.Expired,
		})
	}
	return out
}
