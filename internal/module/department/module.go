package department

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/claimdesk/internal/domain"
	"github.com/simp-lee/claimdesk/internal/middleware"
)

// DepartmentModule implements the app.Module interface for departments.
type DepartmentModule struct {
	handler *DepartmentHandler
}

// NewModule creates a new DepartmentModule.
// Panics if h is nil.
func NewModule(h *DepartmentHandler) *DepartmentModule {
	if h == nil {
		panic("department.NewModule: handler must not be nil")
	}
	return &DepartmentModule{handler: h}
}

func (m *DepartmentModule) Models() []any {
	return []any{&domain.Department{}}
}

// RegisterRoutes registers department routes. The lookup is open to every
// authenticated user; creating departments is admin only.
func (m *DepartmentModule) RegisterRoutes(api *gin.RouterGroup) {
	departments := api.Group("/departments")
	departments.GET("/get-all", m.handler.All)
	departments.POST("", middleware.RequireRoles(domain.RoleAdmin), m.handler.Create)
}
