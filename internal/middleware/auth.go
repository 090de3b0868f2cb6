package middleware

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/jwt"
	"github.com/simp-lee/logger"

	"github.com/simp-lee/claimdesk/internal/domain"
	"github.com/simp-lee/claimdesk/internal/pkg"
)

const (
	actorContextKey = "auth_actor"
	tokenContextKey = "auth_token"
)

// TokenValidator is the subset of jwt.Service used to authenticate requests.
type TokenValidator interface {
	ValidateAndParse(token string) (*jwt.Token, error)
}

// Auth returns a gin middleware that requires a valid bearer token on every
// request whose path is not in publicPaths. The token must carry a numeric
// user id and exactly one known role; the resulting domain.Actor is stored on
// the gin context and the user id is attached to the request's log context.
func Auth(validator TokenValidator, publicPaths []string) gin.HandlerFunc {
	public := make(map[string]struct{}, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := public[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWith(c, domain.NewAppError(domain.CodeUnauthorized, "missing bearer token", nil))
			return
		}

		tok, err := validator.ValidateAndParse(raw)
		if err != nil {
			abortWith(c, domain.NewAppError(domain.CodeUnauthorized, "invalid or expired token", err))
			return
		}

		actor, ok := actorFromToken(tok)
		if !ok {
			abortWith(c, domain.NewAppError(domain.CodeUnauthorized, "token does not identify a user", nil))
			return
		}

		SetActor(c, actor)
		c.Set(tokenContextKey, raw)

		ctx := logger.WithContextAttrs(c.Request.Context(),
			slog.Uint64("user_id", uint64(actor.UserID)),
			slog.String("role", actor.Role),
		)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireRoles rejects requests whose actor role is not one of roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			abortWith(c, domain.ErrUnauthorized)
			return
		}
		if !slices.Contains(roles, actor.Role) {
			abortWith(c, domain.NewAppError(domain.CodeForbidden, "role "+actor.Role+" is not allowed here", nil))
			return
		}
		c.Next()
	}
}

// SetActor stores actor on the gin context for CurrentActor and RequireRoles.
func SetActor(c *gin.Context, actor domain.Actor) {
	c.Set(actorContextKey, actor)
}

// CurrentActor returns the authenticated actor stored by Auth.
func CurrentActor(c *gin.Context) (domain.Actor, bool) {
	v, exists := c.Get(actorContextKey)
	if !exists {
		return domain.Actor{}, false
	}
	actor, ok := v.(domain.Actor)
	return actor, ok
}

// CurrentToken returns the raw bearer token accepted by Auth.
func CurrentToken(c *gin.Context) string {
	return c.GetString(tokenContextKey)
}

func actorFromToken(tok *jwt.Token) (domain.Actor, bool) {
	if tok == nil || len(tok.Roles) != 1 {
		return domain.Actor{}, false
	}
	id, err := strconv.ParseUint(tok.UserID, 10, 64)
	if err != nil || id == 0 {
		return domain.Actor{}, false
	}
	role := tok.Roles[0]
	if !domain.ValidRole(role) {
		return domain.Actor{}, false
	}
	return domain.Actor{UserID: uint(id), Role: role}, true
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abortWith(c *gin.Context, err error) {
	pkg.Error(c, err)
	c.Abort()
}
