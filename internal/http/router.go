package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/example/equipment-booking/internal/booking"
)

type RouterConfig struct {
	Auth       *AuthHandler
	Bookings   *BookingHandler
	Settings   *SettingsHandler
	Exports    *ExportHandler
	Health     SnapshotSource
	Middleware []func(http.Handler) http.Handler
}

// SnapshotSource reports the held snapshot for the health check.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*booking.Snapshot, error)
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		resp := healthResponse{Status: "ok"}
		if cfg.Health != nil {
			if snap, err := cfg.Health.Snapshot(r.Context()); err == nil {
				resp.SnapshotLoaded = true
				resp.FetchedAt = snap.FetchedAt.Format(time.RFC3339)
			}
		}
		newResponder(nil).writeJSON(r.Context(), w, http.StatusOK, resp)
	})

	if cfg.Auth != nil {
		mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Login(w, r)
		})
	}

	if cfg.Bookings != nil {
		mux.HandleFunc("/snapshot", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Bookings.Snapshot(w, r)
		})
		mux.HandleFunc("/snapshot/refresh", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Bookings.Refresh(w, r)
		})
		mux.HandleFunc("/periods", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Bookings.Periods(w, r)
		})
		mux.HandleFunc("/calendar", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Bookings.Calendar(w, r)
		})
		mux.HandleFunc("/days/", func(w http.ResponseWriter, r *http.Request) {
			date := strings.TrimPrefix(r.URL.Path, "/days/")
			if date == "" || strings.Contains(date, "/") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			r = r.WithContext(ContextWithSlotPath(r.Context(), SlotPath{Date: date}))
			cfg.Bookings.Day(w, r)
		})
		mux.HandleFunc("/slots/", func(w http.ResponseWriter, r *http.Request) {
			parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/slots/"), "/")
			if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			r = r.WithContext(ContextWithSlotPath(r.Context(), SlotPath{Date: parts[0], Period: parts[1]}))
			cfg.Bookings.Slot(w, r)
		})
		mux.HandleFunc("/reservations", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Bookings.ListReservations(w, r)
			case http.MethodPost:
				cfg.Bookings.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/reservations/mine", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Bookings.MyReservations(w, r)
		})
		mux.HandleFunc("/reservations/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/reservations/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			r = r.WithContext(ContextWithReservationID(r.Context(), id))
			cfg.Bookings.Delete(w, r)
		})
	}

	if cfg.Settings != nil {
		mux.HandleFunc("/settings", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Settings.Get(w, r)
			case http.MethodPut:
				cfg.Settings.Update(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut)
			}
		})
		mux.HandleFunc("/settings/ranges/next", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Settings.NextRange(w, r)
		})
		mux.HandleFunc("/settings/ranges/copy", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Settings.CopyRanges(w, r)
		})
	}

	if cfg.Exports != nil {
		exports := map[string]http.HandlerFunc{
			"/exports/months":           cfg.Exports.Months,
			"/exports/reservations.csv": cfg.Exports.ReservationsCSV,
			"/exports/mine.ics":         cfg.Exports.MyCalendar,
			"/exports/availability.ics": cfg.Exports.AvailabilityCalendar,
		}
		for path, handle := range exports {
			mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				handle(w, r)
			})
		}
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

type healthResponse struct {
	Status         string `json:"status"`
	SnapshotLoaded bool   `json:"snapshotLoaded"`
	FetchedAt      string `json:"fetchedAt,omitempty"`
}
