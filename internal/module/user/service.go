package user

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/simp-lee/claimdesk/internal/domain"
)

// TokenRevoker invalidates every outstanding token of a user. jwt.Service
// satisfies it.
type TokenRevoker interface {
	RevokeAllUserTokens(userID string) error
}

// userService implements domain.UserService.
type userService struct {
	repo    domain.UserRepository
	revoker TokenRevoker
	claims  domain.ClaimReferences
}

// NewUserService creates a new UserService with the given repository.
// revoker may be nil, in which case role and block changes only take effect
// when the user's current token expires. claims guards deletes and approver
// demotions against leaving claims without a requester or approver.
func NewUserService(repo domain.UserRepository, revoker TokenRevoker, claims domain.ClaimReferences) domain.UserService {
	return &userService{repo: repo, revoker: revoker, claims: claims}
}

// CreateUser validates input, hashes the password, and persists the user.
// An empty roleCode defaults to member.
func (s *userService) CreateUser(ctx context.Context, name, email, password, roleCode string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if roleCode == "" {
		roleCode = domain.RoleMember
	}

	if err := validateNameEmail(name, email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if !domain.ValidRole(roleCode) {
		return nil, domain.NewAppError(domain.CodeValidation, "unknown role code "+roleCode, nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to hash password", err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		RoleCode:     roleCode,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *userService) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	return s.repo.GetByID(ctx, id)
}

// ListUsers returns a paginated list of users.
func (s *userService) ListUsers(ctx context.Context, req domain.PageRequest) (*domain.PageResult[domain.User], error) {
	return s.repo.List(ctx, req)
}

// UpdateUser loads the existing user, applies changes, and persists them.
func (s *userService) UpdateUser(ctx context.Context, id uint, name, email string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if err := validateNameEmail(name, email); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Name = name
	user.Email = email

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// ChangeRole assigns a new role. Outstanding tokens still carry the old role,
// so they are revoked.
func (s *userService) ChangeRole(ctx context.Context, id uint, roleCode string) (*domain.User, error) {
	if !domain.ValidRole(roleCode) {
		return nil, domain.NewAppError(domain.CodeValidation, "unknown role code "+roleCode, nil)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.RoleCode == roleCode {
		return user, nil
	}
	if user.RoleCode == domain.RoleApprover {
		if err := s.ensureNoAwaitingClaims(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	user.RoleCode = roleCode
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	s.revokeTokens(ctx, user.ID)

	return user, nil
}

// ChangeBlocked blocks or unblocks a user. Blocking revokes outstanding tokens.
func (s *userService) ChangeBlocked(ctx context.Context, id uint, blocked bool) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsBlocked == blocked {
		return user, nil
	}
	if blocked && user.RoleCode == domain.RoleApprover {
		if err := s.ensureNoAwaitingClaims(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	user.IsBlocked = blocked
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	if blocked {
		s.revokeTokens(ctx, user.ID)
	}

	return user, nil
}

// DeleteUser removes a user by ID. Users that requested or were assigned any
// claim are kept; block them instead.
func (s *userService) DeleteUser(ctx context.Context, id uint) error {
	n, err := s.claims.CountByUser(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return domain.NewAppError(domain.CodeConflict,
			fmt.Sprintf("user is referenced by %d claims and cannot be deleted", n), nil)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.revokeTokens(ctx, id)
	return nil
}

// ChangePassword replaces the password of user id after checking the
// current one.
func (s *userService) ChangePassword(ctx context.Context, id uint, oldPassword, newPassword string) error {
	if oldPassword == "" {
		return domain.NewAppError(domain.CodeValidation, "current password is required", nil)
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if oldPassword == newPassword {
		return domain.NewAppError(domain.CodeValidation, "new password must differ from the current one", nil)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return domain.NewAppError(domain.CodeValidation, "current password is incorrect", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return domain.NewAppError(domain.CodeInternal, "failed to hash password", err)
	}
	user.PasswordHash = string(hash)
	return s.repo.Update(ctx, user)
}

// ensureNoAwaitingClaims refuses to take an approver out of service while
// claims wait on their decision.
func (s *userService) ensureNoAwaitingClaims(ctx context.Context, id uint) error {
	n, err := s.claims.CountAwaitingApprover(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return domain.NewAppError(domain.CodeConflict,
			fmt.Sprintf("approver has %d claims pending approval", n), nil)
	}
	return nil
}

func (s *userService) revokeTokens(ctx context.Context, id uint) {
	if s.revoker == nil {
		return
	}
	if err := s.revoker.RevokeAllUserTokens(strconv.FormatUint(uint64(id), 10)); err != nil {
		slog.WarnContext(ctx, "revoke user tokens failed",
			slog.Uint64("user_id", uint64(id)),
			slog.Any("error", err),
		)
	}
}

// validateNameEmail checks that name and email are non-empty.
func validateNameEmail(name, email string) error {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return domain.NewAppError(domain.CodeValidation, "name is required", nil)
	}
	if utf8.RuneCountInString(trimmedName) < 2 {
		return domain.NewAppError(domain.CodeValidation, "name must be at least 2 characters", nil)
	}
	if utf8.RuneCountInString(trimmedName) > 100 {
		return domain.NewAppError(domain.CodeValidation, "name must be at most 100 characters", nil)
	}

	trimmedEmail := strings.TrimSpace(email)
	if trimmedEmail == "" {
		return domain.NewAppError(domain.CodeValidation, "email is required", nil)
	}
	if _, err := mail.ParseAddress(trimmedEmail); err != nil {
		return domain.NewAppError(domain.CodeValidation, "email must be a valid email address", nil)
	}
	return nil
}

// validatePassword enforces bcrypt's input limit.
func validatePassword(password string) error {
	if len(password) < 8 {
		return domain.NewAppError(domain.CodeValidation, "password must be at least 8 characters", nil)
	}
	if len(password) > 72 {
		return domain.NewAppError(domain.CodeValidation, "password must not exceed 72 characters", nil)
	}
	return nil
}
