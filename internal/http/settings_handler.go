package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/equipment-booking/internal/application"
	"github.com/example/equipment-booking/internal/booking"
)

type settingsService interface {
	Current(ctx context.Context) booking.Settings
	SetupMode(ctx context.Context) (bool, error)
	Save(ctx context.Context, params application.SaveSettingsParams) (*booking.Snapshot, error)
	NextRange(draft booking.Settings, weekday time.Weekday) (booking.Settings, error)
	CopyRanges(draft booking.Settings, weekday time.Weekday) (booking.Settings, error)
}

type SettingsHandler struct {
	service   settingsService
	responder responder
	logger    *slog.Logger
}

func NewSettingsHandler(service settingsService, logger *slog.Logger) *SettingsHandler {
	base := defaultLogger(logger)
	return &SettingsHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SettingsHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SettingsHandler", operation, attrs...)
}

// Get returns the current settings and whether the site is in setup mode.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	setup, err := h.service.SetupMode(r.Context())
	if err != nil {
		h.log(r.Context(), "Get").WarnContext(r.Context(), "settings unavailable", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, settingsResponse{
		Settings:  h.service.Current(r.Context()),
		SetupMode: setup,
	})
}

// Update saves settings. Outside setup mode only administrators may save, and
// nothing is saved while no snapshot is held.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	setup, err := h.service.SetupMode(r.Context())
	if err != nil {
		h.log(r.Context(), "Update").WarnContext(r.Context(), "settings unavailable", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	var user booking.User
	if setup {
		user, _ = UserFromContext(r.Context())
	} else {
		var ok bool
		if user, ok = h.responder.requireAdmin(r.Context(), w); !ok {
			return
		}
	}

	var req booking.Settings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode settings request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "setup_mode", setup)
	snap, err := h.service.Save(r.Context(), application.SaveSettingsParams{User: user, Settings: req})
	if err != nil {
		logger.ErrorContext(r.Context(), "settings update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "settings updated", "equipment", len(snap.Settings.Equipment))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, settingsResponse{
		Settings:  snap.Settings,
		SetupMode: snap.Settings.SetupMode(),
	})
}

// NextRange appends the suggested next time range to one weekday of a draft.
func (h *SettingsHandler) NextRange(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.editDraft(w, r, "NextRange", h.service.NextRange)
}

// CopyRanges copies one weekday's ranges onto every other enabled weekday of a draft.
func (h *SettingsHandler) CopyRanges(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.editDraft(w, r, "CopyRanges", h.service.CopyRanges)
}

func (h *SettingsHandler) editDraft(w http.ResponseWriter, r *http.Request, operation string, edit func(booking.Settings, time.Weekday) (booking.Settings, error)) {
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode draft request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if req.Weekday < int(time.Sunday) || req.Weekday > int(time.Saturday) {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidWeekday)
		return
	}

	draft, err := edit(req.Settings, time.Weekday(req.Weekday))
	if err != nil {
		h.log(r.Context(), operation, "weekday", req.Weekday).WarnContext(r.Context(), "draft edit failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, settingsResponse{Settings: draft, SetupMode: draft.SetupMode()})
}

type draftRequest struct {
	Settings booking.Settings `json:"settings"`
	Weekday  int              `json:"weekday"`
}

type settingsResponse struct {
	Settings  booking.Settings `json:"settings"`
	SetupMode bool             `json:"setupMode"`
}
