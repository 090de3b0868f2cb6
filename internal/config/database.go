package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Pool defaults applied when the corresponding key is unset.
const (
	defaultMaxIdleConns    = 10
	defaultMaxOpenConns    = 100
	defaultConnMaxLifetime = "1h"
)

// slowQueryThreshold is the duration above which a statement is logged at
// Warn even when SQL tracing is off.
const slowQueryThreshold = 200 * time.Millisecond

// sqliteBusyTimeout makes a writer wait for the lock instead of failing with
// SQLITE_BUSY while another status change commits.
const sqliteBusyTimeout = 5000

// SetupDatabase opens the claim store. SQLite is limited to one open
// connection: a status change and its audit entry are written in one
// transaction, and SQLite serializes writers anyway, so a single connection
// avoids busy errors and lets ":memory:" databases be shared. Postgres uses
// the configured pool.
//
// SQL statements are logged through logger: every statement at Debug when
// logger has Debug enabled, otherwise only slow statements and failures.
func SetupDatabase(cfg *DatabaseConfig, logger *slog.Logger) (*gorm.DB, error) {
	if cfg == nil {
		return nil, errors.New("database config is nil")
	}
	if logger == nil {
		return nil, errors.New("logger is nil")
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dsn, err := sqliteDSN(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(buildPostgresDSN(&cfg.Postgres))
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	logMode := gormlogger.Warn
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		logMode = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newSQLLogger(logger, logMode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pool := cfg.Pool
	if cfg.Driver == "sqlite" {
		pool.MaxOpenConns = 1
		pool.MaxIdleConns = 1
	}
	if err := configurePool(db, &pool); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}

	logger.Info("database connected",
		slog.String("driver", cfg.Driver),
		slog.Int("max_idle_conns", effectiveMaxIdleConns(pool.MaxIdleConns)),
		slog.Int("max_open_conns", effectiveMaxOpenConns(pool.MaxOpenConns)),
		slog.String("conn_max_lifetime", effectiveConnMaxLifetime(pool.ConnMaxLifetime)),
	)
	return db, nil
}

// sqliteDSN creates the parent directory of a file database and appends the
// pragmas the claim store relies on.
func sqliteDSN(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("database.sqlite.path is required")
	}
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("failed to create sqlite directory %q: %w", dir, err)
			}
		}
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep +
		"_pragma=foreign_keys(1)&_pragma=busy_timeout(" + strconv.Itoa(sqliteBusyTimeout) + ")", nil
}

// configurePool sets connection pool parameters on the underlying sql.DB.
func configurePool(db *gorm.DB, pool *PoolConfig) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	raw := effectiveConnMaxLifetime(pool.ConnMaxLifetime)
	lifetime, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid pool.conn_max_lifetime %q: %w", pool.ConnMaxLifetime, err)
	}
	if lifetime <= 0 {
		return fmt.Errorf("invalid pool.conn_max_lifetime %q: must be greater than 0", pool.ConnMaxLifetime)
	}

	sqlDB.SetMaxIdleConns(effectiveMaxIdleConns(pool.MaxIdleConns))
	sqlDB.SetMaxOpenConns(effectiveMaxOpenConns(pool.MaxOpenConns))
	sqlDB.SetConnMaxLifetime(lifetime)
	return nil
}

func effectiveMaxIdleConns(v int) int {
	if v <= 0 {
		return defaultMaxIdleConns
	}
	return v
}

func effectiveMaxOpenConns(v int) int {
	if v <= 0 {
		return defaultMaxOpenConns
	}
	return v
}

func effectiveConnMaxLifetime(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return defaultConnMaxLifetime
	}
	return v
}

func buildPostgresDSN(cfg *PostgresConfig) string {
	if cfg == nil {
		return ""
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   cfg.DBName,
	}
	if cfg.User != "" || cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}

	query := url.Values{}
	if cfg.SSLMode != "" {
		query.Set("sslmode", cfg.SSLMode)
	}
	query.Set("application_name", "claimdesk")
	u.RawQuery = query.Encode()
	return u.String()
}

// sqlLogger sends gorm's statement log to slog so SQL lines carry the same
// request id and user attributes as the rest of the request.
type sqlLogger struct {
	log   *slog.Logger
	level gormlogger.LogLevel
}

func newSQLLogger(log *slog.Logger, level gormlogger.LogLevel) gormlogger.Interface {
	return &sqlLogger{log: log, level: level}
}

func (l *sqlLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &sqlLogger{log: l.log, level: level}
}

func (l *sqlLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.log.InfoContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *sqlLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.log.WarnContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *sqlLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.log.ErrorContext(ctx, fmt.Sprintf(msg, args...))
	}
}

// Trace logs one executed statement. Record-not-found is expected on every
// lookup of a missing claim and is not treated as a failure.
func (l *sqlLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := elapsed > slowQueryThreshold

	switch {
	case failed && l.level >= gormlogger.Error:
		sql, rows := fc()
		l.log.LogAttrs(ctx, slog.LevelError, "sql failed",
			slog.String("sql", sql), slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed), slog.Any("error", err))
	case slow && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.log.LogAttrs(ctx, slog.LevelWarn, "slow sql",
			slog.String("sql", sql), slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed))
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.log.LogAttrs(ctx, slog.LevelDebug, "sql",
			slog.String("sql", sql), slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed))
	}
}
