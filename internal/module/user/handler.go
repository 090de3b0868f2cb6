package user

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/claimdesk/internal/domain"
	"github.com/simp-lee/claimdesk/internal/middleware"
	"github.com/simp-lee/claimdesk/internal/pkg"
)

// approverListLimit caps the approver picker list.
const approverListLimit = 100

// UserHandler handles REST API requests for the user resource.
type UserHandler struct {
	svc domain.UserService
}

// NewUserHandler creates a new UserHandler with the given service.
func NewUserHandler(svc domain.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Create handles POST /api/v1/users.
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.CreateUser(c.Request.Context(), req.Name, req.Email, req.Password, req.RoleCode)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Created(c, "user created", user)
}

// Get handles GET /api/v1/users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pkg.ParseID(c)
	if !ok {
		return
	}

	user, err := h.svc.GetUser(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, user)
}

// List handles GET /api/v1/users.
func (h *UserHandler) List(c *gin.Context) {
	h.list(c, pkg.ParsePageRequest(c))
}

// Search handles POST /api/v1/users/search.
func (h *UserHandler) Search(c *gin.Context) {
	req, ok := pkg.BindSearchRequest(c)
	if !ok {
		return
	}
	h.list(c, req)
}

func (h *UserHandler) list(c *gin.Context, req domain.PageRequest) {
	result, err := h.svc.ListUsers(c.Request.Context(), req)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.List(c, result)
}

// Approvers handles GET /api/v1/users/approvers. It lists the users a claim
// can be assigned to and is open to every authenticated role.
func (h *UserHandler) Approvers(c *gin.Context) {
	result, err := h.svc.ListUsers(c.Request.Context(), domain.PageRequest{
		Page:     1,
		PageSize: approverListLimit,
		Sort:     "name:asc",
		Filter:   map[string]string{"role_code": domain.RoleApprover},
	})
	if err != nil {
		pkg.Error(c, err)
		return
	}

	summaries := make([]UserSummary, 0, len(result.Items))
	for _, u := range result.Items {
		if u.IsBlocked {
			continue
		}
		summaries = append(summaries, UserSummary{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	pkg.Success(c, summaries)
}

// Update handles PUT /api/v1/users/:id. Administrators may edit anyone;
// other users only their own profile.
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pkg.ParseID(c)
	if !ok {
		return
	}
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		pkg.Error(c, domain.ErrUnauthorized)
		return
	}
	if actor.Role != domain.RoleAdmin && actor.UserID != id {
		pkg.Error(c, domain.NewAppError(domain.CodeForbidden, "you can only edit your own profile", nil))
		return
	}

	var req UpdateUserRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.UpdateUser(c.Request.Context(), id, req.Name, req.Email)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, user)
}

// ChangePassword handles PUT /api/v1/users/change-password for the caller.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		pkg.Error(c, domain.ErrUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), actor.UserID, req.OldPassword, req.NewPassword); err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, nil)
}

// ChangeRole handles PUT /api/v1/users/:id/role.
func (h *UserHandler) ChangeRole(c *gin.Context) {
	id, ok := pkg.ParseID(c)
	if !ok {
		return
	}

	var req ChangeRoleRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.ChangeRole(c.Request.Context(), id, req.RoleCode)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, user)
}

// ChangeStatus handles PUT /api/v1/users/:id/status.
func (h *UserHandler) ChangeStatus(c *gin.Context) {
	id, ok := pkg.ParseID(c)
	if !ok {
		return
	}

	var req ChangeStatusRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.ChangeBlocked(c.Request.Context(), id, *req.IsBlocked)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, user)
}

// Delete handles DELETE /api/v1/users/:id.
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pkg.ParseID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteUser(c.Request.Context(), id); err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, nil)
}
