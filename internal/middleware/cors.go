package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/claimdesk/internal/pkg"
)

// CORSConfig holds the configuration for the CORS middleware.
type CORSConfig struct {
	// AllowOrigins lists the browser origins allowed to call the API.
	// ["*"] allows any origin; an empty list allows none.
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool
	// MaxAge is the preflight cache lifetime in seconds.
	MaxAge string
}

// DefaultCORSConfig allows any origin and is meant for debug mode.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader},
		MaxAge:       "86400",
	}
}

// CORS uses DefaultCORSConfig.
func CORS() gin.HandlerFunc {
	return CORSWithConfig(DefaultCORSConfig())
}

// CORSWithConfig answers preflight requests and decorates cross-origin
// responses. Requests without an Origin header pass through untouched. A
// preflight from an origin that is not allowed is refused with a 403
// envelope; other requests from such origins proceed without CORS headers
// and the browser blocks the response.
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	anyOrigin := false
	origins := make(map[string]struct{}, len(cfg.AllowOrigins))
	for _, o := range cfg.AllowOrigins {
		o = normalizeOrigin(o)
		if o == "*" {
			anyOrigin = true
		}
		origins[o] = struct{}{}
	}
	allowMethods := strings.Join(cfg.AllowMethods, ", ")
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""

		h := c.Writer.Header()
		h.Add("Vary", "Origin")
		if preflight {
			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")
		}

		_, listed := origins[normalizeOrigin(origin)]
		if !anyOrigin && !listed {
			if preflight {
				c.AbortWithStatusJSON(http.StatusForbidden, pkg.Response{
					Code:    http.StatusForbidden,
					Message: "origin not allowed",
				})
				return
			}
			c.Next()
			return
		}

		// Credentials forbid the wildcard; echo the caller's origin instead.
		if anyOrigin && !cfg.AllowCredentials {
			c.Header("Access-Control-Allow-Origin", "*")
		} else {
			c.Header("Access-Control-Allow-Origin", origin)
		}
		if cfg.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Expose-Headers", RequestIDHeader)

		if !preflight {
			c.Next()
			return
		}
		c.Header("Access-Control-Allow-Methods", allowMethods)
		c.Header("Access-Control-Allow-Headers", allowHeaders)
		if cfg.MaxAge != "" {
			c.Header("Access-Control-Max-Age", cfg.MaxAge)
		}
		c.AbortWithStatus(http.StatusNoContent)
	}
}

// normalizeOrigin lowercases scheme and host and drops a trailing slash,
// which some clients send.
func normalizeOrigin(o string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(o)), "/")
}
