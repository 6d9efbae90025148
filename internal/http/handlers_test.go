package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/equipment-booking/internal/booking"
	"github.com/example/equipment-booking/internal/store/memory"
	"github.com/example/equipment-booking/internal/testfixtures"
)

var (
	teacher = booking.User{Account: "t01", Name: "王老師", Role: booking.RoleTeacher}
	other   = booking.User{Account: "t02", Name: "李老師", Role: booking.RoleTeacher}
	admin   = booking.User{Account: "a01", Name: "管理員", Role: booking.RoleAdmin}
)

type testAPI struct {
	handler  http.Handler
	services *testfixtures.Services
	store    *memory.Store
}

func newTestAPI(t *testing.T, fixture testfixtures.SnapshotFixture, refresh bool) *testAPI {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	factory := testfixtures.NewServiceFactory()
	store := factory.NewMemoryStore(fixture,
		memory.Account{Account: teacher.Account, Password: "pw", Name: teacher.Name, Role: teacher.Role},
		memory.Account{Account: admin.Account, Password: "admin-pw", Name: admin.Name, Role: admin.Role},
	)
	services := factory.NewServices(testfixtures.ServiceDeps{Store: store, Logger: logger})
	if refresh {
		if _, err := services.Bookings.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh returned error: %v", err)
		}
	}

	bookings := NewBookingHandler(services.Bookings, logger)
	bookings.now = factory.Clock.NowFunc()

	return &testAPI{
		handler: NewRouter(RouterConfig{
			Auth:       NewAuthHandler(services.Auth, logger),
			Bookings:   bookings,
			Settings:   NewSettingsHandler(services.Settings, logger),
			Exports:    NewExportHandler(services.Exports, logger),
			Health:     services.Bookings,
			Middleware: []func(http.Handler) http.Handler{RequestID, RequestLogger(logger), Identity},
		}),
		services: services,
		store:    store,
	}
}

func (a *testAPI) do(t *testing.T, method, target string, user *booking.User, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if user != nil {
		req.Header.Set(HeaderUserAccount, user.Account)
		req.Header.Set(HeaderUserName, user.Name)
		req.Header.Set(HeaderUserRole, user.Role)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestAuthHandlers(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, testfixtures.NewSnapshotFixture(), true)

	t.Run("login returns the store user", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/login", nil, map[string]string{"account": "t01", "password": "pw"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		resp := decode[loginResponse](t, rec)
		if resp.User.Account != "t01" || resp.User.Role != booking.RoleTeacher || resp.User.IsAdmin {
			t.Fatalf("unexpected user %+v", resp.User)
		}
	})

	t.Run("wrong password is 401", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/login", nil, map[string]string{"account": "t01", "password": "nope"})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if resp := decode[errorResponse](t, rec); resp.ErrorCode != "AUTH_INVALID_CREDENTIALS" {
			t.Fatalf("unexpected error %+v", resp)
		}
	})

	t.Run("missing fields are localized validation errors", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/login", nil, map[string]string{})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		resp := decode[errorResponse](t, rec)
		if resp.Errors["account"] != "請輸入帳號。" || resp.Errors["password"] != "請輸入密碼。" {
			t.Fatalf("unexpected field errors %+v", resp.Errors)
		}
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		api.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("GET is not allowed", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/login", nil, nil)
		if rec.Code != http.StatusMethodNotAllowed || rec.Header().Get("Allow") != http.MethodPost {
			t.Fatalf("expected 405 with Allow header, got %d %q", rec.Code, rec.Header().Get("Allow"))
		}
	})
}

func TestSnapshotHandlers(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, testfixtures.NewSnapshotFixture(), false)

	rec := api.do(t, http.MethodGet, "/snapshot", nil, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before the first refresh, got %d", rec.Code)
	}
	health := decode[healthResponse](t, api.do(t, http.MethodGet, "/healthz", nil, nil))
	if health.Status != "ok" || health.SnapshotLoaded {
		t.Fatalf("unexpected health %+v", health)
	}

	rec = api.do(t, http.MethodPost, "/snapshot/refresh", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from refresh, got %d: %s", rec.Code, rec.Body.String())
	}
	snap := decode[booking.Snapshot](t, rec)
	if len(snap.Settings.Periods) != 3 || len(snap.Settings.Equipment) != 2 {
		t.Fatalf("unexpected snapshot %+v", snap.Settings)
	}

	periods := decode[periodsResponse](t, api.do(t, http.MethodGet, "/periods", nil, nil))
	if len(periods.Periods) != 3 || periods.Periods[0].Start != "08:00" || periods.Periods[0].End != "08:40" {
		t.Fatalf("unexpected periods %+v", periods.Periods)
	}

	health = decode[healthResponse](t, api.do(t, http.MethodGet, "/healthz", nil, nil))
	if !health.SnapshotLoaded || health.FetchedAt == "" {
		t.Fatalf("expected loaded snapshot in health, got %+v", health)
	}
}

func TestCalendarHandlers(t *testing.T) {
	t.Parallel()

	fixture := testfixtures.NewSnapshotFixture(testfixtures.WithReservations(
		testfixtures.NewReservationFixture(
			testfixtures.WithReservationID("r-cam"),
			testfixtures.WithReservationUser(other.Account, other.Name),
			testfixtures.WithReservationSlot("cam", "2024-01-08", 1),
		),
	))
	api := newTestAPI(t, fixture, true)

	t.Run("month view covers every day", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/calendar?month=2024-01&equipment=cam", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		resp := decode[calendarResponse](t, rec)
		if resp.Month != "2024-01" || resp.Equipment != "cam" || len(resp.Days) != 31 {
			t.Fatalf("unexpected calendar %s %s with %d days", resp.Month, resp.Equipment, len(resp.Days))
		}
		monday := resp.Days[7]
		if monday.Date != "2024-01-08" || monday.Weekday != 1 {
			t.Fatalf("unexpected day %+v", monday)
		}
		if monday.Periods[0].Status != "fully-booked" || monday.Periods[1].Status != "available" {
			t.Fatalf("unexpected monday statuses %+v", monday.Periods)
		}
	})

	t.Run("month defaults to the current month", func(t *testing.T) {
		resp := decode[calendarResponse](t, api.do(t, http.MethodGet, "/calendar", nil, nil))
		if resp.Month != "2024-01" || resp.Equipment != "all" {
			t.Fatalf("unexpected defaults %s %s", resp.Month, resp.Equipment)
		}
	})

	t.Run("invalid month is 400", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/calendar?month=2024-13", nil, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("day view", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/days/2024-01-08?equipment=ipad", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		day := decode[dayDTO](t, rec)
		if len(day.Periods) != 3 || day.Periods[0].Status != "available" {
			t.Fatalf("ipad must still be available, got %+v", day.Periods)
		}
		if rec := api.do(t, http.MethodGet, "/days/yesterday", nil, nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for a bad date, got %d", rec.Code)
		}
	})

	t.Run("slot view marks the caller's reservation", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/slots/2024-01-08/1", &other, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		slot := decode[slotDTO](t, rec)
		if len(slot.Equipment) != 2 {
			t.Fatalf("expected two equipment rows, got %+v", slot.Equipment)
		}
		if slot.Equipment[0].Status != "my-reservation" || slot.Equipment[0].ReservationID != "r-cam" {
			t.Fatalf("unexpected camera row %+v", slot.Equipment[0])
		}
		if slot.Equipment[1].Status != "available" || slot.Equipment[1].Remaining != 2 {
			t.Fatalf("unexpected ipad row %+v", slot.Equipment[1])
		}

		slot = decode[slotDTO](t, api.do(t, http.MethodGet, "/slots/2024-01-08/1", &teacher, nil))
		if slot.Equipment[0].Status != "reserved" {
			t.Fatalf("another user's reservation must be reserved, got %+v", slot.Equipment[0])
		}
	})

	t.Run("unknown period is 404", func(t *testing.T) {
		if rec := api.do(t, http.MethodGet, "/slots/2024-01-08/9", nil, nil); rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if rec := api.do(t, http.MethodGet, "/slots/2024-01-08/first", nil, nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestReservationHandlers(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, testfixtures.NewSnapshotFixture(), true)
	body := map[string]any{"date": "2024-01-08", "period": 1, "equipmentId": "cam"}

	t.Run("anonymous booking is 401", func(t *testing.T) {
		if rec := api.do(t, http.MethodPost, "/reservations", nil, body); rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	rec := api.do(t, http.MethodPost, "/reservations", &teacher, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	snap := decode[booking.Snapshot](t, rec)
	if len(snap.Reservations) != 1 || snap.Reservations[0].UserID != teacher.Account {
		t.Fatalf("unexpected reservations %+v", snap.Reservations)
	}
	reservationID := snap.Reservations[0].ID

	t.Run("store rejection keeps its message", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/reservations", &other, body)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		resp := decode[errorResponse](t, rec)
		if resp.ErrorCode != "STORE_REJECTED" || resp.Message != memory.MessageSlotFull {
			t.Fatalf("unexpected error %+v", resp)
		}
	})

	t.Run("expired slot is 409", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/reservations", &teacher, map[string]any{"date": "2024-01-02", "period": 1, "equipmentId": "cam"})
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		if resp := decode[errorResponse](t, rec); resp.ErrorCode != "SLOT_EXPIRED" {
			t.Fatalf("unexpected error %+v", resp)
		}
	})

	t.Run("unknown equipment is a validation error", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/reservations", &teacher, map[string]any{"date": "2024-01-08", "period": 1, "equipmentId": "drone"})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		if resp := decode[errorResponse](t, rec); resp.Errors["equipmentId"] != "指定的設備不存在。" {
			t.Fatalf("unexpected errors %+v", resp.Errors)
		}
	})

	t.Run("my reservations", func(t *testing.T) {
		resp := decode[reservationsResponse](t, api.do(t, http.MethodGet, "/reservations/mine", &teacher, nil))
		if len(resp.Reservations) != 1 {
			t.Fatalf("expected one reservation, got %+v", resp.Reservations)
		}
		got := resp.Reservations[0]
		if got.Date != "2024-01-08" || got.Start != "08:00" || got.End != "08:40" || got.Expired {
			t.Fatalf("unexpected reservation %+v", got)
		}
		resp = decode[reservationsResponse](t, api.do(t, http.MethodGet, "/reservations/mine", &other, nil))
		if len(resp.Reservations) != 0 {
			t.Fatalf("other user must see nothing, got %+v", resp.Reservations)
		}
	})

	t.Run("admin list", func(t *testing.T) {
		if rec := api.do(t, http.MethodGet, "/reservations", &teacher, nil); rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for teachers, got %d", rec.Code)
		}
		rec := api.do(t, http.MethodGet, "/reservations?sort=userName&direction=asc", &admin, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if resp := decode[reservationsResponse](t, rec); len(resp.Reservations) != 1 {
			t.Fatalf("unexpected list %+v", resp.Reservations)
		}
		if rec := api.do(t, http.MethodGet, "/reservations?sort=colour", &admin, nil); rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for an unknown sort key, got %d", rec.Code)
		}
	})

	t.Run("cancel", func(t *testing.T) {
		if rec := api.do(t, http.MethodDelete, "/reservations/missing", &teacher, nil); rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		rec := api.do(t, http.MethodDelete, "/reservations/"+reservationID, &teacher, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if snap := decode[booking.Snapshot](t, rec); len(snap.Reservations) != 0 {
			t.Fatalf("expected no reservations, got %+v", snap.Reservations)
		}
	})
}

func TestSettingsHandlers(t *testing.T) {
	t.Parallel()

	t.Run("saving requires an administrator", func(t *testing.T) {
		api := newTestAPI(t, testfixtures.NewSnapshotFixture(), true)
		current := decode[settingsResponse](t, api.do(t, http.MethodGet, "/settings", nil, nil))
		if current.SetupMode || current.Settings.SheetID != "sheet-test" {
			t.Fatalf("unexpected settings %+v", current)
		}

		updated := current.Settings
		updated.SiteTitle = "器材室"
		if rec := api.do(t, http.MethodPut, "/settings", &teacher, updated); rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		rec := api.do(t, http.MethodPut, "/settings", &admin, updated)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if resp := decode[settingsResponse](t, rec); resp.Settings.SiteTitle != "器材室" {
			t.Fatalf("unexpected saved settings %+v", resp.Settings)
		}
	})

	t.Run("nothing is saved while no snapshot is held", func(t *testing.T) {
		api := newTestAPI(t, testfixtures.NewSnapshotFixture(), false)
		draft := testfixtures.NewSnapshotFixture(testfixtures.WithSheetID("hijacked")).Settings()
		draft.SiteTitle = "pwned"

		if rec := api.do(t, http.MethodGet, "/settings", nil, nil); rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503 from GET, got %d", rec.Code)
		}
		rec := api.do(t, http.MethodPut, "/settings", nil, draft)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503 from anonymous PUT, got %d: %s", rec.Code, rec.Body.String())
		}
		if resp := decode[errorResponse](t, rec); resp.ErrorCode != "SNAPSHOT_UNAVAILABLE" {
			t.Fatalf("unexpected error %+v", resp)
		}
		if rec := api.do(t, http.MethodPost, "/login", nil, map[string]string{"account": "admin", "password": "admin1234"}); rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503 from login, got %d", rec.Code)
		}

		stored, err := api.store.FetchAll(context.Background())
		if err != nil {
			t.Fatalf("FetchAll returned error: %v", err)
		}
		if stored.Settings.SheetID != "sheet-test" || stored.Settings.SiteTitle == "pwned" {
			t.Fatalf("store settings changed: %+v", stored.Settings)
		}
	})

	t.Run("invalid settings are localized", func(t *testing.T) {
		api := newTestAPI(t, testfixtures.NewSnapshotFixture(), true)
		settings := api.services.Settings.Current(context.Background())
		settings.AppointmentDuration = 0
		rec := api.do(t, http.MethodPut, "/settings", &admin, settings)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		if resp := decode[errorResponse](t, rec); resp.Errors["appointmentDuration"] != "每節長度必須大於 0。" {
			t.Fatalf("unexpected errors %+v", resp.Errors)
		}
	})

	t.Run("draft helpers", func(t *testing.T) {
		api := newTestAPI(t, testfixtures.NewSnapshotFixture(), true)
		draft := api.services.Settings.Current(context.Background())

		rec := api.do(t, http.MethodPost, "/settings/ranges/next", nil, map[string]any{"settings": draft, "weekday": 1})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		next := decode[settingsResponse](t, rec).Settings
		monday, _ := next.WeeklyAvailability.Day(1)
		if len(monday.Slots) != 2 {
			t.Fatalf("expected a second monday range, got %+v", monday.Slots)
		}

		if rec := api.do(t, http.MethodPost, "/settings/ranges/copy", nil, map[string]any{"settings": draft, "weekday": 9}); rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for an invalid weekday, got %d", rec.Code)
		}
	})
}

func TestExportHandlers(t *testing.T) {
	t.Parallel()

	fixture := testfixtures.NewSnapshotFixture(testfixtures.WithReservations(
		testfixtures.NewReservationFixture(
			testfixtures.WithReservationID("r-1"),
			testfixtures.WithReservationUser(teacher.Account, teacher.Name),
		),
	))
	api := newTestAPI(t, fixture, true)

	t.Run("months", func(t *testing.T) {
		resp := decode[monthsResponse](t, api.do(t, http.MethodGet, "/exports/months", &admin, nil))
		if len(resp.Months) != 1 || resp.Months[0] != "2024-01" {
			t.Fatalf("unexpected months %+v", resp.Months)
		}
	})

	t.Run("csv download", func(t *testing.T) {
		if rec := api.do(t, http.MethodGet, "/exports/reservations.csv?months=2024-01", &teacher, nil); rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for teachers, got %d", rec.Code)
		}
		rec := api.do(t, http.MethodGet, "/exports/reservations.csv?months=2024-01", &admin, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got := rec.Header().Get("Content-Type"); got != contentTypeCSV {
			t.Fatalf("unexpected content type %q", got)
		}
		if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "reservations_2024-01.csv") {
			t.Fatalf("unexpected disposition %q", got)
		}
		if !strings.HasPrefix(rec.Body.String(), "\ufeff") || !strings.Contains(rec.Body.String(), `"r-1"`) {
			t.Fatalf("unexpected csv body %q", rec.Body.String())
		}
		if rec := api.do(t, http.MethodGet, "/exports/reservations.csv", &admin, nil); rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 without months, got %d", rec.Code)
		}
	})

	t.Run("calendars", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/exports/mine.ics", &teacher, nil)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "BEGIN:VEVENT") {
			t.Fatalf("unexpected user calendar %d %q", rec.Code, rec.Body.String())
		}
		if rec := api.do(t, http.MethodGet, "/exports/mine.ics", nil, nil); rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		rec = api.do(t, http.MethodGet, "/exports/availability.ics", nil, nil)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "RRULE:FREQ=WEEKLY") {
			t.Fatalf("unexpected availability calendar %d %q", rec.Code, rec.Body.String())
		}
		if got := rec.Header().Get("Content-Type"); got != contentTypeCalendar {
			t.Fatalf("unexpected content type %q", got)
		}
	})
}
