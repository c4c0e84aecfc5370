package main

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hshah27/hospital-mgmt-system/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:                 "test",
		SessionSecret:       strings.Repeat("s", 32),
		SessionTTL:          time.Hour,
		LoginRateLimitRPS:   1,
		LoginRateLimitBurst: 5,
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *echo.Echo {
	t.Helper()
	e, _, err := newServer(cfg, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer() error: %v", err)
	}
	return e
}

func serve(e *echo.Echo, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if method == http.MethodPost {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// Migration source selection
// ---------------------------------------------------------------------------

func TestMigrationSource_UsesDirectoryWhenPresent(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_local.sql"), []byte("SELECT 1;"), 0644); err != nil {
		t.Fatalf("write migration: %v", err)
	}

	if _, err := fs.Stat(migrationSource(dir), "001_local.sql"); err != nil {
		t.Errorf("expected on-disk migrations, got %v", err)
	}
}

func TestMigrationSource_FallsBackToEmbedded(t *testing.T) {
	for _, dir := range []string{"", "/nonexistent/migrations"} {
		if _, err := fs.Stat(migrationSource(dir), "001_core.sql"); err != nil {
			t.Errorf("dir %q: expected embedded 001_core.sql, got %v", dir, err)
		}
	}
}

func TestMigrationsDir_FlagWins(t *testing.T) {
	cfg := &config.Config{MigrationsDir: "./migrations"}
	if got := migrationsDir("/tmp/custom", cfg); got != "/tmp/custom" {
		t.Errorf("expected flag to win, got %q", got)
	}
	if got := migrationsDir("", cfg); got != "./migrations" {
		t.Errorf("expected MIGRATIONS_DIR, got %q", got)
	}
}

func TestRegistryGate(t *testing.T) {
	cfg := testConfig()
	if gate := registryGate(cfg, zerolog.Nop()); len(gate) != 1 {
		t.Errorf("expected staff gate, got %d middleware", len(gate))
	}
	cfg.PublicRegistry = true
	if gate := registryGate(cfg, zerolog.Nop()); len(gate) != 0 {
		t.Errorf("expected open registry, got %d middleware", len(gate))
	}
}

// ---------------------------------------------------------------------------
// Server wiring
// ---------------------------------------------------------------------------

func TestServer_Health(t *testing.T) {
	rec := serve(newTestServer(t, testConfig()), http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestServer_PublicPageCarriesCSRFAndHeaders(t *testing.T) {
	rec := serve(newTestServer(t, testConfig()), http.MethodGet, "/login/")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `name="csrf_token"`) {
		t.Error("expected csrf_token hidden field in login form")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("expected security headers")
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("expected request id header")
	}
}

func TestServer_PostWithoutCSRFTokenRejected(t *testing.T) {
	rec := serve(newTestServer(t, testConfig()), http.MethodPost, "/login/")
	if rec.Code != http.StatusBadRequest && rec.Code != http.StatusForbidden {
		t.Errorf("expected CSRF rejection, got %d", rec.Code)
	}
}

func TestServer_RegistryRequiresLogin(t *testing.T) {
	e := newTestServer(t, testConfig())
	for _, path := range []string{"/doctors/", "/patients/new/", "/receptionist/dashboard/", "/appointment/request/"} {
		rec := serve(e, http.MethodGet, path)
		if rec.Code != http.StatusFound {
			t.Errorf("%s: expected 302, got %d", path, rec.Code)
			continue
		}
		if loc := rec.Header().Get("Location"); loc != "/login/" {
			t.Errorf("%s: expected redirect to /login/, got %s", path, loc)
		}
	}
}

func TestServer_AnonymousWebsocketRefused(t *testing.T) {
	rec := serve(newTestServer(t, testConfig()), http.MethodGet, "/ws")
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestServer_StaticAssets(t *testing.T) {
	rec := serve(newTestServer(t, testConfig()), http.MethodGet, "/static/live.js")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestServer_UnknownPageIs404(t *testing.T) {
	rec := serve(newTestServer(t, testConfig()), http.MethodGet, "/no-such-page/")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
