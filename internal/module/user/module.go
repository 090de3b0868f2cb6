package user

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/claimdesk/internal/domain"
	"github.com/simp-lee/claimdesk/internal/middleware"
)

// UserModule implements the app.Module interface for the user domain.
type UserModule struct {
	handler *UserHandler
}

// NewModule creates a new UserModule with the given handler.
// Panics if h is nil.
func NewModule(h *UserHandler) *UserModule {
	if h == nil {
		panic("user.NewModule: handler must not be nil")
	}
	return &UserModule{handler: h}
}

// Models returns the user table.
func (m *UserModule) Models() []any {
	return []any{&domain.User{}}
}

// RegisterRoutes registers the user API routes. The approver list, password
// change and profile update are open to every authenticated user; Update
// itself limits non-administrators to their own record.
func (m *UserModule) RegisterRoutes(api *gin.RouterGroup) {
	users := api.Group("/users")
	users.GET("/approvers", m.handler.Approvers)
	users.PUT("/change-password", m.handler.ChangePassword)
	users.PUT("/:id", m.handler.Update)

	admin := users.Group("", middleware.RequireRoles(domain.RoleAdmin))
	admin.POST("", m.handler.Create)
	admin.GET("", m.handler.List)
	admin.POST("/search", m.handler.Search)
	admin.GET("/:id", m.handler.Get)
	admin.PUT("/:id/role", m.handler.ChangeRole)
	admin.PUT("/:id/status", m.handler.ChangeStatus)
	admin.DELETE("/:id", m.handler.Delete)
}
