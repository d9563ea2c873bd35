package server_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Pjt727/timetable/data/boltstore"
	"github.com/Pjt727/timetable/server"
	"golang.org/x/time/rate"
)

func newTestRouter(t *testing.T) (http.Handler, *boltstore.Repository) {
	t.Helper()
	repo, err := boltstore.Open(filepath.Join(t.TempDir(), "serve.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })

	cfg := server.Config{
		CORSOrigins: []string{"https://timetable.example"},
		Location:    time.UTC,
		Title:       "Test Timetable",
	}
	router, hub := server.NewRouter(repo, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(hub.Close)
	return router, repo
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRoutes(t *testing.T) {
	router, _ := newTestRouter(t)
	tests := []struct {
		target string
		status int
		want   string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/", http.StatusOK, "Test Timetable"},
		{"/static/style.css", http.StatusOK, "table"},
		{"/api/timetable", http.StatusOK, `"weeks"`},
		{"/missing", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		rec := get(t, router, tt.target)
		if rec.Code != tt.status {
			t.Errorf("%s: expected %d got %d", tt.target, tt.status, rec.Code)
			continue
		}
		if !strings.Contains(rec.Body.String(), tt.want) {
			t.Errorf("%s: body missing %q", tt.target, tt.want)
		}
	}
}

func TestHealthReportsClosedStore(t *testing.T) {
	router, repo := newTestRouter(t)
	repo.Close()
	if rec := get(t, router, "/healthz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/class", nil)
	req.Header.Set("Origin", "https://timetable.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://timetable.example" {
		t.Errorf("expected the configured origin to be allowed got %q", got)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("CLASS_RATE_LIMIT", "2.5")
	t.Setenv("TIMETABLE_TZ", "")
	t.Setenv("LOG_LEVEL", "IO")

	cfg, err := server.ConfigFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 8081 || len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("unexpected config %#v", cfg)
	}
	if cfg.Limits.Writes != rate.Limit(2.5) {
		t.Errorf("expected a 2.5/s limit got %v", cfg.Limits.Writes)
	}
	if cfg.Location.String() != server.DefaultTimeZone {
		t.Errorf("expected the default zone got %s", cfg.Location)
	}
	if cfg.LogLevel != -2 {
		t.Errorf("expected the IO level got %v", cfg.LogLevel)
	}

	t.Setenv("PORT", "eighty")
	if _, err := server.ConfigFromEnv(); err == nil {
		t.Error("expected a bad port to fail")
	}
}
