package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/claimdesk/internal/domain"
	"github.com/simp-lee/claimdesk/internal/middleware"
	"github.com/simp-lee/claimdesk/internal/pkg"
)

// AuthHandler handles REST API requests for authentication.
type AuthHandler struct {
	svc Service
}

// NewHandler creates a new AuthHandler with the given service.
func NewHandler(svc Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	tokenResp, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, tokenResp)
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Created(c, "user registered successfully", toUserInfo(user))
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		pkg.Error(c, domain.ErrUnauthorized)
		return
	}

	user, err := h.svc.Me(c.Request.Context(), actor.UserID)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, toUserInfo(user))
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), middleware.CurrentToken(c)); err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, nil)
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	tokenResp, err := h.svc.Refresh(c.Request.Context(), middleware.CurrentToken(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, tokenResp)
}
