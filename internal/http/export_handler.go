package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/equipment-booking/internal/application"
)

const (
	contentTypeCSV      = "text/csv; charset=utf-8"
	contentTypeCalendar = "text/calendar; charset=utf-8"
)

type exportService interface {
	AvailableMonths(ctx context.Context) ([]string, error)
	ReservationsCSV(ctx context.Context, w io.Writer, months []string) error
	UserCalendar(ctx context.Context, w io.Writer, userID string) error
	AvailabilityCalendar(ctx context.Context, w io.Writer) error
}

type ExportHandler struct {
	service   exportService
	responder responder
	logger    *slog.Logger
}

func NewExportHandler(service exportService, logger *slog.Logger) *ExportHandler {
	base := defaultLogger(logger)
	return &ExportHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ExportHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ExportHandler", operation, attrs...)
}

// Months lists the months that can be exported.
func (h *ExportHandler) Months(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if _, ok := h.responder.requireAdmin(r.Context(), w); !ok {
		return
	}

	months, err := h.service.AvailableMonths(r.Context())
	if err != nil {
		h.log(r.Context(), "Months").ErrorContext(r.Context(), "failed to list export months", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, monthsResponse{Months: months})
}

// ReservationsCSV downloads the reservations of the months named by the
// months query parameter, comma separated or repeated.
func (h *ExportHandler) ReservationsCSV(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if _, ok := h.responder.requireAdmin(r.Context(), w); !ok {
		return
	}

	months := splitList(r.URL.Query()["months"])
	logger := h.log(r.Context(), "ReservationsCSV", "months", strings.Join(months, ","))

	var buf bytes.Buffer
	if err := h.service.ReservationsCSV(r.Context(), &buf, months); err != nil {
		logger.ErrorContext(r.Context(), "csv export failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "csv exported", "bytes", buf.Len())
	h.writeFile(r.Context(), w, contentTypeCSV, application.CSVFilename(months), buf.Bytes())
}

// MyCalendar downloads the signed-in user's reservations as iCalendar.
func (h *ExportHandler) MyCalendar(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	user, ok := h.responder.requireUser(r.Context(), w)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.service.UserCalendar(r.Context(), &buf, user.Account); err != nil {
		h.log(r.Context(), "MyCalendar").ErrorContext(r.Context(), "calendar export failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeFile(r.Context(), w, contentTypeCalendar, "my-reservations.ics", buf.Bytes())
}

// AvailabilityCalendar downloads the weekly opening hours as iCalendar.
func (h *ExportHandler) AvailabilityCalendar(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := h.service.AvailabilityCalendar(r.Context(), &buf); err != nil {
		h.log(r.Context(), "AvailabilityCalendar").ErrorContext(r.Context(), "calendar export failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeFile(r.Context(), w, contentTypeCalendar, "availability.ics", buf.Bytes())
}

func (h *ExportHandler) writeFile(ctx context.Context, w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.log(ctx, "writeFile").WarnContext(ctx, "failed to write download", "error", err)
	}
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

type monthsResponse struct {
	Months []string `json:"months"`
}
