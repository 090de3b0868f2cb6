package project

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/claimdesk/internal/domain"
	"github.com/simp-lee/claimdesk/internal/pkg"
)

// ProjectHandler handles REST API requests for projects.
type ProjectHandler struct {
	svc domain.ProjectService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(svc domain.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// Create handles POST /api/v1/projects.
func (h *ProjectHandler) Create(c *gin.Context) {
	var req ProjectRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	project, err := h.svc.CreateProject(c.Request.Context(), req.input())
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Created(c, "project created", project)
}

// Get handles GET /api/v1/projects/:id.
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := pkg.ParseID(c)
	if !ok {
		return
	}

	project, err := h.svc.GetProject(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, project)
}

// Search handles POST /api/v1/projects/search.
func (h *ProjectHandler) Search(c *gin.Context) {
	req, ok := pkg.BindSearchRequest(c)
	if !ok {
		return
	}

	result, err := h.svc.ListProjects(c.Request.Context(), req)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.List(c, result)
}

// Update handles PUT /api/v1/projects/:id.
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := pkg.ParseID(c)
	if !ok {
		return
	}

	var req ProjectRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	project, err := h.svc.UpdateProject(c.Request.Context(), id, req.input())
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, project)
}

// Delete handles DELETE /api/v1/projects/:id.
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := pkg.ParseID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteProject(c.Request.Context(), id); err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, nil)
}

// ChangeStatus handles PUT /api/v1/projects/change-status.
func (h *ProjectHandler) ChangeStatus(c *gin.Context) {
	var req ChangeStatusRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	project, err := h.svc.ChangeStatus(c.Request.Context(), req.ID, req.Status, req.Comment)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, project)
}

// Roles handles GET /api/v1/projects/roles.
func (h *ProjectHandler) Roles(c *gin.Context) {
	pkg.Success(c, h.svc.Roles())
}
