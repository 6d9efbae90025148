package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/equipment-booking/internal/booking"
	"github.com/example/equipment-booking/internal/config"
	httptransport "github.com/example/equipment-booking/internal/http"
	"github.com/example/equipment-booking/internal/scheduler"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		HTTPPort:      8080,
		StoreMode:     config.StoreModeMemory,
		StoreTimeout:  time.Second,
		Timezone:      "UTC",
		Location:      time.UTC,
		SQLiteDSN:     filepath.Join(t.TempDir(), "cache.db"),
		RefreshCron:   "@every 1h",
		SetupAccount:  "admin",
		SetupPassword: "setup-secret",
		LogLevel:      "info",
	}
}

func send(t *testing.T, handler http.Handler, method, target string, user *booking.User, body any) *httptest.ResponseRecorder {
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
		req.Header.Set(httptransport.HeaderUserAccount, user.Account)
		req.Header.Set(httptransport.HeaderUserName, user.Name)
		req.Header.Set(httptransport.HeaderUserRole, user.Role)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestNewAppMemoryModeSetupFlow(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	wired, err := newApp(ctx, testConfig(t), logger)
	if err != nil {
		t.Fatalf("newApp returned error: %v", err)
	}
	t.Cleanup(wired.Close)

	if wired.refresher == nil {
		t.Fatalf("expected refresh scheduler for a non-empty cron spec")
	}
	if len(wired.closers) != 1 {
		t.Fatalf("expected the snapshot cache to be registered for closing")
	}

	if rec := send(t, wired.handler, http.MethodPost, "/snapshot/refresh", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("refresh failed: %d %s", rec.Code, rec.Body.String())
	}
	if rec := send(t, wired.handler, http.MethodGet, "/healthz", nil, nil); rec.Code != http.StatusOK || rec.Header().Get(httptransport.HeaderRequestID) == "" {
		t.Fatalf("unexpected health response %d", rec.Code)
	}

	var login struct {
		User struct {
			Account string `json:"account"`
			Role    string `json:"role"`
		} `json:"user"`
	}
	rec := send(t, wired.handler, http.MethodPost, "/login", nil, map[string]string{"account": "admin", "password": "setup-secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("setup login failed: %d %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil || login.User.Role != booking.RoleAdmin {
		t.Fatalf("unexpected setup login %s (%v)", rec.Body.String(), err)
	}

	settings := wired.services.settings.Current(ctx)
	settings.SheetID = "sheet-1"
	settings.Equipment = []scheduler.Equipment{{Name: "Camera", Capacity: 1}}
	admin := booking.User{Account: "admin", Name: "初始管理員", Role: booking.RoleAdmin}
	rec = send(t, wired.handler, http.MethodPut, "/settings", &admin, settings)
	if rec.Code != http.StatusOK {
		t.Fatalf("saving settings failed: %d %s", rec.Code, rec.Body.String())
	}
	if setup, err := wired.services.settings.SetupMode(ctx); err != nil || setup {
		t.Fatalf("site must leave setup mode once a sheet id is saved")
	}
	saved := wired.services.settings.Current(ctx)
	if len(saved.Equipment) != 1 || saved.Equipment[0].ID == "" {
		t.Fatalf("expected generated equipment id, got %+v", saved.Equipment)
	}

	rec = send(t, wired.handler, http.MethodPost, "/login", nil, map[string]string{"account": "admin", "password": "setup-secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("store login with the hashed setup password failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = send(t, wired.handler, http.MethodPost, "/login", nil, map[string]string{"account": "admin", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a wrong password, got %d", rec.Code)
	}
}

func TestNewAppWithoutCacheOrCron(t *testing.T) {
	cfg := testConfig(t)
	cfg.SQLiteDSN = ""
	cfg.RefreshCron = ""

	wired, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("newApp returned error: %v", err)
	}
	t.Cleanup(wired.Close)

	if wired.refresher != nil || len(wired.closers) != 0 {
		t.Fatalf("cache and refresh must be disabled")
	}
}

func TestNewStoreRejectsInvalidEndpoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreMode = config.StoreModeRemote
	cfg.StoreURL = "not a url"

	if _, err := newStore(cfg, "", slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Fatalf("expected error for an invalid store endpoint")
	}
}
