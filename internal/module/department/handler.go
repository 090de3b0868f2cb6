package department

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/claimdesk/internal/domain"
	"github.com/simp-lee/claimdesk/internal/pkg"
)

// DepartmentHandler handles REST API requests for departments.
type DepartmentHandler struct {
	svc domain.DepartmentService
}

// NewDepartmentHandler creates a new DepartmentHandler.
func NewDepartmentHandler(svc domain.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{svc: svc}
}

// All handles GET /api/v1/departments/get-all.
func (h *DepartmentHandler) All(c *gin.Context) {
	departments, err := h.svc.ListDepartments(c.Request.Context())
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, departments)
}

// Create handles POST /api/v1/departments.
func (h *DepartmentHandler) Create(c *gin.Context) {
	var req CreateDepartmentRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	d, err := h.svc.CreateDepartment(c.Request.Context(), req.Code, req.Name, req.Description)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, "department created", d)
}
