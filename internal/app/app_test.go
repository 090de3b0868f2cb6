package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/simp-lee/jwt"
	"github.com/simp-lee/logger"
	"gorm.io/gorm"

	"github.com/simp-lee/claimdesk/internal/config"
	"github.com/simp-lee/claimdesk/internal/domain"
)

const testJWTSecret = "test-secret-key-must-be-at-least-32-chars-long!"

var errNoToken = errors.New("token is invalid")

type fakeHTTPServer struct {
	listenErr      error
	listenStarted  chan struct{}
	shutdownCalled bool
	stopCh         chan struct{}
	mu             sync.Mutex
}

func (f *fakeHTTPServer) ListenAndServe() error {
	if f.listenStarted != nil {
		close(f.listenStarted)
	}
	if f.listenErr != nil {
		return f.listenErr
	}
	if f.stopCh != nil {
		<-f.stopCh
		return http.ErrServerClosed
	}
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(context.Context) error {
	f.mu.Lock()
	f.shutdownCalled = true
	f.mu.Unlock()
	if f.stopCh != nil {
		close(f.stopCh)
	}
	return nil
}

func (f *fakeHTTPServer) wasShutdownCalled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdownCalled
}

// closingJWTService records Close calls and fails everything else.
type closingJWTService struct {
	mu     sync.Mutex
	closes int
}

func (f *closingJWTService) GenerateToken(string, []string, time.Duration) (string, error) {
	return "", errors.New("not implemented")
}
func (f *closingJWTService) ValidateToken(string) (*jwt.Token, error)                 { return nil, errNoToken }
func (f *closingJWTService) ValidateAndParse(string) (*jwt.Token, error)              { return nil, errNoToken }
func (f *closingJWTService) RefreshToken(string) (string, error)                      { return "", nil }
func (f *closingJWTService) RefreshTokenExtend(string, time.Duration) (string, error) { return "", nil }
func (f *closingJWTService) RevokeToken(string) error                                 { return nil }
func (f *closingJWTService) IsTokenRevoked(string) bool                               { return false }
func (f *closingJWTService) ParseToken(string) (*jwt.Token, error)                    { return nil, errNoToken }
func (f *closingJWTService) RevokeAllUserTokens(string) error                         { return nil }
func (f *closingJWTService) Close() {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
}

func (f *closingJWTService) wasClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes > 0
}

func testConfig(mode, dbPath string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
			Mode: mode,
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			SQLite: config.SQLiteConfig{Path: dbPath},
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "text",
		},
		Auth: config.AuthConfig{
			JWTSecret:   testJWTSecret,
			TokenExpiry: "1h",
			PublicPaths: []string{"/api/v1/auth/login", "/api/v1/auth/register"},
		},
	}
}

func cleanupTestApp(t *testing.T, a *App) {
	t.Helper()
	a.Close()
}

func TestResolveCORSConfig(t *testing.T) {
	defaults := resolveCORSConfig(gin.DebugMode, config.CORSConfig{})
	if len(defaults.AllowOrigins) != 1 || defaults.AllowOrigins[0] != "*" {
		t.Fatalf("debug default AllowOrigins = %v, want [*]", defaults.AllowOrigins)
	}
	if defaults.MaxAge != "86400" {
		t.Fatalf("debug default MaxAge = %q, want %q", defaults.MaxAge, "86400")
	}

	release := resolveCORSConfig(gin.ReleaseMode, config.CORSConfig{})
	if len(release.AllowOrigins) != 0 {
		t.Fatalf("release default AllowOrigins = %v, want empty", release.AllowOrigins)
	}

	custom := resolveCORSConfig(gin.ReleaseMode, config.CORSConfig{
		AllowOrigins:     []string{"https://admin.example.com"},
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           "12h",
	})
	if len(custom.AllowOrigins) != 1 || custom.AllowOrigins[0] != "https://admin.example.com" {
		t.Errorf("AllowOrigins = %v", custom.AllowOrigins)
	}
	if strings.Join(custom.AllowMethods, ",") != "GET,POST" {
		t.Errorf("AllowMethods = %v", custom.AllowMethods)
	}
	if strings.Join(custom.AllowHeaders, ",") != "Authorization" {
		t.Errorf("AllowHeaders = %v", custom.AllowHeaders)
	}
	if !custom.AllowCredentials {
		t.Error("AllowCredentials = false, want true")
	}
	if custom.MaxAge != "43200" {
		t.Errorf("MaxAge = %q, want %q", custom.MaxAge, "43200")
	}
}

func TestValidateGinMode(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		wantErr bool
	}{
		{name: "debug mode", mode: gin.DebugMode, wantErr: false},
		{name: "release mode", mode: gin.ReleaseMode, wantErr: false},
		{name: "test mode", mode: gin.TestMode, wantErr: false},
		{name: "invalid mode", mode: "staging", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateGinMode(tt.mode)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateGinMode() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerWriteTimeout(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"", defaultWriteTimeout},
		{"garbage", defaultWriteTimeout},
		{"-5s", defaultWriteTimeout},
		{"15s", 15 * time.Second},
	}
	for _, tt := range tests {
		if got := serverWriteTimeout(tt.raw); got != tt.want {
			t.Errorf("serverWriteTimeout(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestNew_NilConfig(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("New(nil) error = nil, want error")
	}
}

func TestNew_ReturnsError_WhenDatabaseSetupFails(t *testing.T) {
	cfg := testConfig(gin.TestMode, "")
	cfg.Database.Driver = "unsupported"

	app, err := New(cfg)
	if err == nil {
		t.Fatalf("New() error = nil, want error")
	}
	if app != nil {
		t.Fatalf("New() app = %#v, want nil", app)
	}
	if !strings.Contains(err.Error(), "setup database") {
		t.Fatalf("New() error = %q, want contains %q", err.Error(), "setup database")
	}
}

func TestNew_RejectsInvalidTokenExpiry(t *testing.T) {
	cfg := testConfig(gin.TestMode, filepath.Join(t.TempDir(), "expiry.db"))
	cfg.Auth.TokenExpiry = "soon"

	if _, err := New(cfg); err == nil || !strings.Contains(err.Error(), "token_expiry") {
		t.Fatalf("New() error = %v, want token_expiry error", err)
	}
}

func TestNew_ReturnsError_WhenJWTSetupFails(t *testing.T) {
	original := newJWTService
	defer func() { newJWTService = original }()
	newJWTService = func(string) (jwt.Service, error) {
		return nil, errors.New("bad secret")
	}

	_, err := New(testConfig(gin.TestMode, filepath.Join(t.TempDir(), "jwt.db")))
	if err == nil || !strings.Contains(err.Error(), "setup jwt service") {
		t.Fatalf("New() error = %v, want jwt setup error", err)
	}
}

func TestNew_ProtectedRoutesRequireToken(t *testing.T) {
	app, err := New(testConfig(gin.TestMode, filepath.Join(t.TempDir(), "routes.db")))
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	defer cleanupTestApp(t, app)

	for _, path := range []string{"/api/v1/users", "/api/v1/claims/stats", "/api/v1/auth/me"} {
		w := httptest.NewRecorder()
		app.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token: status = %d, want %d", path, w.Code, http.StatusUnauthorized)
		}
	}

	// Public paths must not be rejected by the auth middleware.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	app.Handler().ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("POST /api/v1/auth/login should not return 401 (public path)")
	}

	w = httptest.NewRecorder()
	app.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAutoMigrate_CreatesTablesInDebug(t *testing.T) {
	app, err := New(testConfig(gin.DebugMode, filepath.Join(t.TempDir(), "debug-migrate.db")))
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	defer cleanupTestApp(t, app)

	for _, table := range []string{"users", "departments", "projects", "project_members", "claims", "claim_logs"} {
		if !app.db.Migrator().HasTable(table) {
			t.Errorf("expected table %q to exist after debug migration", table)
		}
	}
	if !app.db.Migrator().HasColumn(&domain.Claim{}, "claim_status") {
		t.Error("expected claims.claim_status column")
	}
}

func TestAutoMigrate_DoesNotRunOutsideDebug(t *testing.T) {
	app, err := New(testConfig(gin.TestMode, filepath.Join(t.TempDir(), "no-migrate.db")))
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	defer cleanupTestApp(t, app)

	if app.db.Migrator().HasTable("users") {
		t.Fatal("expected users table to be absent outside debug mode")
	}
}

func TestApp_MigrateCreatesTablesOutsideDebug(t *testing.T) {
	app, err := New(testConfig(gin.ReleaseMode, filepath.Join(t.TempDir(), "release-migrate.db")))
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	defer cleanupTestApp(t, app)

	if err := app.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := app.Migrate(); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	for _, table := range []string{"users", "departments", "projects", "project_members", "claims", "claim_logs"} {
		if !app.db.Migrator().HasTable(table) {
			t.Errorf("expected table %q after Migrate", table)
		}
	}
}

func TestApp_CloseIsIdempotent(t *testing.T) {
	jwtSvc := &closingJWTService{}
	orig := newJWTService
	newJWTService = func(string) (jwt.Service, error) { return jwtSvc, nil }
	t.Cleanup(func() { newJWTService = orig })

	app, err := New(testConfig(gin.TestMode, filepath.Join(t.TempDir(), "close.db")))
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	app.Close()
	app.Close()

	if jwtSvc.closes != 1 {
		t.Errorf("jwt Close calls = %d, want 1", jwtSvc.closes)
	}
	if err := app.Migrate(); err == nil {
		t.Error("Migrate after Close should fail")
	}
	var nilApp *App
	nilApp.Close()
}

func TestNew_RegisterLoginAndMe(t *testing.T) {
	app, err := New(testConfig(gin.DebugMode, filepath.Join(t.TempDir(), "e2e.db")))
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	defer cleanupTestApp(t, app)

	post := func(path, body, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		app.Handler().ServeHTTP(w, req)
		return w
	}

	w := post("/api/v1/auth/register", `{"name":"Mai","email":"mai@example.com","password":"s3cret-pass"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", w.Code, w.Body.String())
	}

	w = post("/api/v1/auth/login", `{"email":"mai@example.com","password":"s3cret-pass"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}
	var login struct {
		Data struct {
			Token string `json:"token"`
			User  struct {
				RoleCode string `json:"role_code"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if login.Data.Token == "" || login.Data.User.RoleCode != domain.RoleMember {
		t.Fatalf("unexpected login payload %s", w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.Data.Token)
	w = httptest.NewRecorder()
	app.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d, body = %s", w.Code, w.Body.String())
	}

	// Members may search their own claims but not the admin scope.
	w = post("/api/v1/claims/claimer-search", `{}`, login.Data.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("claimer-search status = %d, body = %s", w.Code, w.Body.String())
	}
	w = post("/api/v1/claims/search", `{}`, login.Data.Token)
	if w.Code != http.StatusForbidden {
		t.Fatalf("admin search as member status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestRun_ReturnsError_WhenListenFails(t *testing.T) {
	originalNewHTTPServer := newHTTPServer
	originalNotifyContext := notifyContext
	defer func() {
		newHTTPServer = originalNewHTTPServer
		notifyContext = originalNotifyContext
	}()

	listenErr := errors.New("listen failed")
	server := &fakeHTTPServer{listenErr: listenErr}
	newHTTPServer = func(string, http.Handler, time.Duration) httpServer {
		return server
	}
	notifyContext = func(context.Context, ...os.Signal) (context.Context, context.CancelFunc) {
		return context.WithCancel(context.Background())
	}

	a := &App{
		engine: gin.New(),
		logger: logger.Default(),
		cfg:    &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080}},
	}

	err := a.Run()
	if err == nil {
		t.Fatalf("Run() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "server error") {
		t.Fatalf("Run() error = %q, want contains %q", err.Error(), "server error")
	}
	if !errors.Is(err, listenErr) {
		t.Fatalf("Run() error = %v, want wraps %v", err, listenErr)
	}
}

func TestRun_ShutdownSignal_ReleasesResources(t *testing.T) {
	originalNewHTTPServer := newHTTPServer
	originalNotifyContext := notifyContext
	defer func() {
		newHTTPServer = originalNewHTTPServer
		notifyContext = originalNotifyContext
	}()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open() error = %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB() error = %v", err)
	}

	var gotTimeout time.Duration
	server := &fakeHTTPServer{listenStarted: make(chan struct{}), stopCh: make(chan struct{})}
	newHTTPServer = func(_ string, _ http.Handler, writeTimeout time.Duration) httpServer {
		gotTimeout = writeTimeout
		return server
	}

	ctx, cancel := context.WithCancel(context.Background())
	notifyContext = func(context.Context, ...os.Signal) (context.Context, context.CancelFunc) {
		return ctx, cancel
	}

	jwtSvc := &closingJWTService{}
	a := &App{
		engine: gin.New(),
		db:     db,
		jwt:    jwtSvc,
		logger: logger.Default(),
		cfg: &config.Config{Server: config.ServerConfig{
			Host:    "127.0.0.1",
			Port:    8080,
			Timeout: "20s",
		}},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run()
	}()

	select {
	case <-server.listenStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start listening in time")
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return in time after shutdown signal")
	}

	if gotTimeout != 20*time.Second {
		t.Errorf("write timeout = %v, want 20s", gotTimeout)
	}
	if !server.wasShutdownCalled() {
		t.Fatal("expected server Shutdown() to be called")
	}
	if !jwtSvc.wasClosed() {
		t.Fatal("expected jwt service to be closed")
	}
	if pingErr := sqlDB.Ping(); pingErr == nil {
		t.Fatal("expected database connection to be closed, but Ping() succeeded")
	}
}

func TestRun_NilApp(t *testing.T) {
	var a *App
	if err := a.Run(); err == nil {
		t.Fatal("Run() on nil app error = nil, want error")
	}
}
