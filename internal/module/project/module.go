package project

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/claimdesk/internal/domain"
	"github.com/simp-lee/claimdesk/internal/middleware"
)

// ProjectModule implements the app.Module interface for projects.
type ProjectModule struct {
	handler *ProjectHandler
}

// NewModule creates a new ProjectModule.
// Panics if h is nil.
func NewModule(h *ProjectHandler) *ProjectModule {
	if h == nil {
		panic("project.NewModule: handler must not be nil")
	}
	return &ProjectModule{handler: h}
}

// Models returns the project and membership tables.
func (m *ProjectModule) Models() []any {
	return []any{&domain.Project{}, &domain.ProjectMember{}}
}

// RegisterRoutes registers project routes. Reads are open to every
// authenticated user; writes are admin only.
func (m *ProjectModule) RegisterRoutes(api *gin.RouterGroup) {
	projects := api.Group("/projects")
	projects.POST("/search", m.handler.Search)
	projects.GET("/roles", m.handler.Roles)
	projects.GET("/:id", m.handler.Get)

	admin := projects.Group("", middleware.RequireRoles(domain.RoleAdmin))
	admin.POST("", m.handler.Create)
	admin.PUT("/change-status", m.handler.ChangeStatus)
	admin.PUT("/:id", m.handler.Update)
	admin.DELETE("/:id", m.handler.Delete)
}
