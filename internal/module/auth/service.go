package auth

import (
	"context"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/simp-lee/jwt"

	"github.com/simp-lee/claimdesk/internal/domain"
)

// Service defines the authentication operations.
type Service interface {
	Login(ctx context.Context, email, password string) (*TokenResponse, error)
	Register(ctx context.Context, name, email, password string) (*domain.User, error)
	Me(ctx context.Context, userID uint) (*domain.User, error)
	Logout(ctx context.Context, token string) error
	Refresh(ctx context.Context, token string) (*TokenResponse, error)
}

// authService implements Service.
type authService struct {
	jwtSvc      jwt.Service
	userRepo    domain.UserRepository
	users       domain.UserService
	tokenExpiry time.Duration
}

// NewService creates a new auth Service. Registration is delegated to users
// so self-registered accounts go through the same validation as
// admin-created ones.
func NewService(jwtSvc jwt.Service, userRepo domain.UserRepository, users domain.UserService, tokenExpiry time.Duration) Service {
	return &authService{
		jwtSvc:      jwtSvc,
		userRepo:    userRepo,
		users:       users,
		tokenExpiry: tokenExpiry,
	}
}

// Login authenticates a user by email and password and returns a JWT token
// carrying the user's role.
func (s *authService) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		// Don't reveal whether the user exists.
		if domain.IsNotFound(err) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	if user.IsBlocked {
		return nil, domain.NewAppError(domain.CodeForbidden, "account is blocked", nil)
	}

	token, err := s.jwtSvc.GenerateToken(
		strconv.FormatUint(uint64(user.ID), 10),
		[]string{user.RoleCode},
		s.tokenExpiry,
	)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to generate token", err)
	}
	return s.tokenResponse(token, user)
}

// Refresh exchanges a valid token for a new one with a fresh expiry. The
// user is looked up again so a blocked or deleted account cannot renew.
func (s *authService) Refresh(ctx context.Context, token string) (*TokenResponse, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	fresh, err := s.jwtSvc.RefreshToken(token)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "token cannot be refreshed", err)
	}
	parsed, err := s.jwtSvc.ParseToken(fresh)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to parse refreshed token", err)
	}
	id, err := strconv.ParseUint(parsed.UserID, 10, 64)
	if err != nil || id == 0 {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "token does not identify a user", err)
	}
	user, err := s.Me(ctx, uint(id))
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		Token:     fresh,
		TokenType: tokenType,
		ExpiresAt: parsed.ExpiresAt.Unix(),
		User:      toUserInfo(user),
	}, nil
}

func (s *authService) tokenResponse(token string, user *domain.User) (*TokenResponse, error) {
	parsed, err := s.jwtSvc.ParseToken(token)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to parse generated token", err)
	}
	return &TokenResponse{
		Token:     token,
		TokenType: tokenType,
		ExpiresAt: parsed.ExpiresAt.Unix(),
		User:      toUserInfo(user),
	}, nil
}

// Register creates a member account with the given credentials.
func (s *authService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	return s.users.CreateUser(ctx, name, email, password, domain.RoleMember)
}

// Me returns the current user. A user deleted or blocked after the token was
// issued is treated as unauthenticated.
func (s *authService) Me(ctx context.Context, userID uint) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if user.IsBlocked {
		return nil, domain.NewAppError(domain.CodeForbidden, "account is blocked", nil)
	}
	return user, nil
}

// Logout revokes token so it can no longer authenticate requests.
func (s *authService) Logout(_ context.Context, token string) error {
	if token == "" {
		return domain.ErrUnauthorized
	}
	if err := s.jwtSvc.RevokeToken(token); err != nil {
		return domain.NewAppError(domain.CodeInternal, "failed to revoke token", err)
	}
	return nil
}

func toUserInfo(u *domain.User) UserInfo {
	return UserInfo{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		RoleCode:  u.RoleCode,
		CreatedAt: u.CreatedAt,
	}
}
