package auth

import "github.com/gin-gonic/gin"

// AuthModule mounts the session endpoints under /auth.
type AuthModule struct {
	handler *AuthHandler
}

// NewModule panics if h is nil.
func NewModule(h *AuthHandler) *AuthModule {
	if h == nil {
		panic("auth.NewModule: handler must not be nil")
	}
	return &AuthModule{handler: h}
}

// RegisterRoutes mounts login and register, which must be listed in
// auth.public_paths, and the token-guarded me, refresh and logout.
func (m *AuthModule) RegisterRoutes(api *gin.RouterGroup) {
	auth := api.Group("/auth")
	auth.POST("/login", m.handler.Login)
	auth.POST("/register", m.handler.Register)
	auth.GET("/me", m.handler.Me)
	auth.POST("/refresh", m.handler.Refresh)
	auth.POST("/logout", m.handler.Logout)
}
