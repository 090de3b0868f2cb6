package claim

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/claimdesk/internal/domain"
	"github.com/simp-lee/claimdesk/internal/middleware"
	"github.com/simp-lee/claimdesk/internal/pkg"
)

// ClaimHandler handles REST API requests for claims and their audit log.
type ClaimHandler struct {
	svc domain.ClaimService
}

// NewClaimHandler creates a new ClaimHandler.
func NewClaimHandler(svc domain.ClaimService) *ClaimHandler {
	registerValidation()
	return &ClaimHandler{svc: svc}
}

// Create handles POST /api/v1/claims.
func (h *ClaimHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req ClaimRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	claim, err := h.svc.CreateClaim(c.Request.Context(), actor, req.input())
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Created(c, "claim created", claim)
}

// Update handles PUT /api/v1/claims/:id.
func (h *ClaimHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pkg.ParseID(c)
	if !ok {
		return
	}
	var req ClaimRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	claim, err := h.svc.UpdateDraft(c.Request.Context(), actor, id, req.input())
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, claim)
}

// Get handles GET /api/v1/claims/:id.
func (h *ClaimHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pkg.ParseID(c)
	if !ok {
		return
	}

	claim, err := h.svc.GetClaim(c.Request.Context(), actor, id)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, claim)
}

// Search returns a handler for one of the POST .../search endpoints.
func (h *ClaimHandler) Search(scope domain.ClaimScope) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			return
		}
		req, ok := pkg.BindSearchRequest(c)
		if !ok {
			return
		}

		result, err := h.svc.SearchClaims(c.Request.Context(), actor, scope, req)
		if err != nil {
			pkg.Error(c, err)
			return
		}

		pkg.List(c, result)
	}
}

// ChangeStatus handles PUT /api/v1/claims/change-status.
func (h *ClaimHandler) ChangeStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req ChangeStatusRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	claim, err := h.svc.ChangeStatus(c.Request.Context(), actor, req.ID, req.Status, req.Comment)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, claim)
}

// Stats handles GET /api/v1/claims/stats.
func (h *ClaimHandler) Stats(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	counts, err := h.svc.Stats(c.Request.Context(), actor)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, counts)
}

// Logs handles POST /api/v1/claim-logs/search.
func (h *ClaimHandler) Logs(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	req, ok := pkg.BindSearchRequest(c)
	if !ok {
		return
	}

	result, err := h.svc.ListLogs(c.Request.Context(), actor, req)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.List(c, result)
}

func currentActor(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		pkg.Error(c, domain.ErrUnauthorized)
	}
	return actor, ok
}
