package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/jwt"
	"github.com/simp-lee/logger"
	"gorm.io/gorm"

	"github.com/simp-lee/claimdesk/internal/config"
	"github.com/simp-lee/claimdesk/internal/middleware"
	"github.com/simp-lee/claimdesk/internal/module/auth"
	"github.com/simp-lee/claimdesk/internal/module/claim"
	"github.com/simp-lee/claimdesk/internal/module/department"
	"github.com/simp-lee/claimdesk/internal/module/project"
	"github.com/simp-lee/claimdesk/internal/module/user"
)

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine *gin.Engine
	db     *gorm.DB
	jwt    jwt.Service
	logger *logger.Logger
	cfg    *config.Config

	modules []Module
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

const defaultWriteTimeout = 60 * time.Second

var newHTTPServer = func(addr string, handler http.Handler, writeTimeout time.Duration) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

var newJWTService = func(secret string) (jwt.Service, error) {
	return jwt.New(secret)
}

// New creates and wires a fully configured App from the given Config.
//
// It sets up logging, database, token service, domain repositories, services,
// handlers, middleware and routes.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}
	tokenExpiry, err := time.ParseDuration(cfg.Auth.TokenExpiry)
	if err != nil || tokenExpiry <= 0 {
		return nil, fmt.Errorf("invalid auth.token_expiry %q", cfg.Auth.TokenExpiry)
	}

	success := false

	// 1. Setup logger.
	log, err := config.SetupLogger(&cfg.Log, "server")
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("insecure server config: debug mode on 0.0.0.0 may expose debug behavior and permissive CORS")
	}
	defer func() {
		if success {
			return
		}
		if err := log.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}()

	// 2. Setup database.
	db, err := config.SetupDatabase(&cfg.Database, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	defer func() {
		if success {
			return
		}
		closeDB(db, nil)
	}()

	// 3. Token service.
	jwtSvc, err := newJWTService(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("setup jwt service: %w", err)
	}
	defer func() {
		if !success {
			jwtSvc.Close()
		}
	}()

	// 4. Manual dependency injection: repository → service → handler → module.
	userRepo := user.NewUserRepository(db)
	departmentRepo := department.NewDepartmentRepository(db)
	projectRepo := project.NewProjectRepository(db)
	claimRepo := claim.NewClaimRepository(db)
	logRepo := claim.NewClaimLogRepository(db)
	claimRefs := claim.NewClaimReferences(db)

	userSvc := user.NewUserService(userRepo, jwtSvc, claimRefs)
	authSvc := auth.NewService(jwtSvc, userRepo, userSvc, tokenExpiry)
	departmentSvc := department.NewDepartmentService(departmentRepo)
	projectSvc := project.NewProjectService(projectRepo, userRepo, departmentRepo, claimRefs)
	claimSvc := claim.NewClaimService(claimRepo, logRepo, projectRepo, userRepo)

	modules := []Module{
		auth.NewModule(auth.NewHandler(authSvc)),
		user.NewModule(user.NewUserHandler(userSvc)),
		department.NewModule(department.NewDepartmentHandler(departmentSvc)),
		project.NewModule(project.NewProjectHandler(projectSvc)),
		claim.NewModule(claim.NewClaimHandler(claimSvc)),
	}

	// 5. Tables are created automatically in debug mode only; other modes
	// run `server -migrate` as a deploy step.
	if cfg.Server.Mode == gin.DebugMode {
		if err := migrate(db, modules, log.Logger); err != nil {
			return nil, err
		}
	}

	// 6. Create Gin engine with custom middleware (not gin.Default()).
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()

	// In release mode, when no allowlist is configured, default to deny cross-origin requests.
	corsConfig := resolveCORSConfig(cfg.Server.Mode, cfg.Server.CORS)

	engine.Use(
		middleware.Recovery(log.Logger),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			TrustUpstream: cfg.Server.TrustRequestID,
		}),
		middleware.Logger(log.Logger),
		middleware.CORSWithConfig(corsConfig),
	)

	// 7. Register all routes.
	if err := RegisterRoutes(engine, &RouteDeps{
		Modules: modules,
		DB:      db,
		Auth:    middleware.Auth(jwtSvc, cfg.Auth.PublicPaths),
	}); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	success = true
	return &App{
		engine:  engine,
		db:      db,
		jwt:     jwtSvc,
		logger:  log,
		cfg:     cfg,
		modules: modules,
	}, nil
}

// Migrate creates or updates the tables owned by the registered modules.
func (a *App) Migrate() error {
	if a == nil || a.db == nil {
		return errors.New("app is not initialized")
	}
	return migrate(a.db, a.modules, a.log())
}

func migrate(db *gorm.DB, modules []Module, log *slog.Logger) error {
	tables := collectModels(modules)
	if err := db.AutoMigrate(tables...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("auto migration completed", slog.Int("tables", len(tables)))
	return nil
}

func (a *App) log() *slog.Logger {
	if a.logger != nil {
		return a.logger.Logger
	}
	return slog.Default()
}

// Handler exposes the configured gin engine, mainly for in-process tests.
func (a *App) Handler() http.Handler {
	return a.engine
}

func resolveCORSConfig(mode string, cfg config.CORSConfig) middleware.CORSConfig {
	corsConfig := middleware.DefaultCORSConfig()

	switch {
	case len(cfg.AllowOrigins) > 0:
		corsConfig.AllowOrigins = cfg.AllowOrigins
	case mode == gin.ReleaseMode:
		corsConfig.AllowOrigins = []string{}
	}
	if len(cfg.AllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.AllowMethods
	}
	if len(cfg.AllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.AllowHeaders
	}
	corsConfig.AllowCredentials = cfg.AllowCredentials
	if d, err := time.ParseDuration(cfg.MaxAge); err == nil && d > 0 {
		corsConfig.MaxAge = strconv.Itoa(int(d.Seconds()))
	}

	return corsConfig
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

// serverWriteTimeout returns server.timeout, or defaultWriteTimeout when unset.
func serverWriteTimeout(raw string) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultWriteTimeout
	}
	return d
}

func closeDB(db *gorm.DB, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error("database close error", slog.Any("error", err))
		return
	}
	log.Info("database connection closed")
}

// Run starts the HTTP server and blocks until a shutdown signal is received.
// It performs graceful shutdown with a 5-second timeout, then releases the
// token service, the database connection and the logger.
func (a *App) Run() error {
	if a == nil {
		return errors.New("app is nil")
	}
	if a.cfg == nil {
		return errors.New("app config is nil")
	}
	if a.engine == nil {
		return errors.New("app engine is nil")
	}

	log := a.log()

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.engine, serverWriteTimeout(a.cfg.Server.Timeout))

	// Listen for SIGINT / SIGTERM.
	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	if runErr == nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", slog.Any("error", err))
		}
	}

	log.Info("server stopped")
	a.Close()
	return runErr
}

// Close releases the token service, the database connection and the logger,
// in that order. Run calls it after shutdown.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.jwt != nil {
		a.jwt.Close()
		a.jwt = nil
	}
	if a.db != nil {
		closeDB(a.db, a.log())
		a.db = nil
	}
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
		a.logger = nil
	}
}
