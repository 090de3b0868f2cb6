package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/claimdesk/internal/pkg"
)

// Recovery turns a handler panic into a 500 envelope. The request id is
// returned in data so a claimctl user can quote it:
//
//	{"code": 500, "success": false, "message": "internal server error", "data": {"request_id": "..."}}
//
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			attrs := []slog.Attr{
				slog.Any("panic", rec),
				slog.String("method", c.Request.Method),
				slog.String("route", routeOf(c)),
				slog.String("stack", string(debug.Stack())),
			}
			if actor, ok := CurrentActor(c); ok {
				attrs = append(attrs, slog.Uint64("user_id", uint64(actor.UserID)), slog.String("role", actor.Role))
			}
			logger.LogAttrs(c.Request.Context(), slog.LevelError, "panic recovered", attrs...)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			resp := pkg.Response{Code: http.StatusInternalServerError, Message: "internal server error"}
			if id := GetRequestID(c); id != "" {
				resp.Data = gin.H{"request_id": id}
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
		}()
		c.Next()
	}
}

func routeOf(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return "unmatched"
}
