package middleware

import (
	"log/slog"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/simp-lee/logger"
)

const (
	// RequestIDHeader carries the correlation id in both directions. claimctl
	// sets it on every call so client and server log lines can be joined.
	RequestIDHeader     = "X-Request-ID"
	requestIDContextKey = "request_id"
)

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

// RequestIDConfig controls how request ids are assigned.
type RequestIDConfig struct {
	// TrustUpstream reuses a well-formed incoming X-Request-ID as the
	// request id. When false the incoming id is kept only as the
	// client_request_id log attribute.
	TrustUpstream bool
	// Generator makes new ids. Defaults to random UUIDs.
	Generator func() string
}

// RequestID assigns every request a fresh UUID.
func RequestID() gin.HandlerFunc {
	return RequestIDWithConfig(RequestIDConfig{})
}

// RequestIDWithConfig stores the request id on the gin context, echoes it in
// the X-Request-ID response header and adds it to the logger context attrs.
func RequestIDWithConfig(cfg RequestIDConfig) gin.HandlerFunc {
	gen := cfg.Generator
	if gen == nil {
		gen = uuid.NewString
	}

	return func(c *gin.Context) {
		upstream := c.GetHeader(RequestIDHeader)
		if !isValidRequestID(upstream) {
			upstream = ""
		}

		id := ""
		if cfg.TrustUpstream {
			id = upstream
		}
		if id == "" {
			id = gen()
		}

		c.Set(requestIDContextKey, id)
		c.Header(RequestIDHeader, id)

		attrs := []slog.Attr{slog.String("request_id", id)}
		if upstream != "" && upstream != id {
			attrs = append(attrs, slog.String("client_request_id", upstream))
		}
		ctx := logger.WithContextAttrs(c.Request.Context(), attrs...)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func isValidRequestID(id string) bool {
	return requestIDPattern.MatchString(id)
}

// GetRequestID returns the request id, or "" when the middleware did not run.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(requestIDContextKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
