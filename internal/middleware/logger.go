package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggerConfig tunes the access log.
type LoggerConfig struct {
	// QuietPaths are logged at Debug instead of Info when they succeed.
	// Health checks hit these every few seconds.
	QuietPaths []string
}

// Logger returns the access log middleware with /health kept quiet.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return LoggerWithConfig(logger, LoggerConfig{QuietPaths: []string{"/health"}})
}

// LoggerWithConfig returns a gin middleware that writes one line per request.
// The line carries the matched route template next to the raw path so that
// /api/v1/claims/7 and /api/v1/claims/9 group under /api/v1/claims/:id, and
// it is written with the request's context so the request id and, once Auth
// has run, the user id and role are attached by the logger's context handler.
//
// Status picks the level: 5xx Error, 4xx Warn, otherwise Info. Errors that
// handlers recorded with c.Error are appended, so a 500 whose client message
// is "internal error" still names its cause.
func LoggerWithConfig(logger *slog.Logger, cfg LoggerConfig) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	quiet := make(map[string]bool, len(cfg.QuietPaths))
	for _, p := range cfg.QuietPaths {
		quiet[p] = true
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		route := routeOf(c)

		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("route", route),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes", c.Writer.Size()),
			slog.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		case quiet[c.Request.URL.Path]:
			level = slog.LevelDebug
		}
		logger.LogAttrs(c.Request.Context(), level, "request", attrs...)
	}
}
