package claim

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/claimdesk/internal/domain"
)

// ClaimModule implements the app.Module interface for claims.
type ClaimModule struct {
	handler *ClaimHandler
}

// NewModule creates a new ClaimModule.
// Panics if h is nil.
func NewModule(h *ClaimHandler) *ClaimModule {
	if h == nil {
		panic("claim.NewModule: handler must not be nil")
	}
	return &ClaimModule{handler: h}
}

// Models returns the claim table and its audit log, in creation order.
func (m *ClaimModule) Models() []any {
	return []any{&domain.Claim{}, &domain.ClaimLog{}}
}

// RegisterRoutes registers claim and claim-log routes. Role and ownership
// rules are enforced by the service.
func (m *ClaimModule) RegisterRoutes(api *gin.RouterGroup) {
	claims := api.Group("/claims")
	claims.POST("", m.handler.Create)
	claims.GET("/stats", m.handler.Stats)
	claims.PUT("/change-status", m.handler.ChangeStatus)
	claims.POST("/search", m.handler.Search(domain.ScopeAll))
	claims.POST("/claimer-search", m.handler.Search(domain.ScopeClaimer))
	claims.POST("/approval-search", m.handler.Search(domain.ScopeApproval))
	claims.POST("/finance-search", m.handler.Search(domain.ScopeFinance))
	claims.GET("/:id", m.handler.Get)
	claims.PUT("/:id", m.handler.Update)

	api.POST("/claim-logs/search", m.handler.Logs)
}
