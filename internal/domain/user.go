package domain

import "context"

// Role codes carried by every user and embedded in issued tokens.
const (
	RoleAdmin    = "A001"
	RoleFinance  = "A002"
	RoleApprover = "A003"
	RoleMember   = "A004"
)

// ValidRole reports whether code is one of the known role codes.
func ValidRole(code string) bool {
	switch code {
	case RoleAdmin, RoleFinance, RoleApprover, RoleMember:
		return true
	default:
		return false
	}
}

// User represents a user in the system.
type User struct {
	BaseModel
	Name         string `gorm:"size:100;not null" json:"name"`
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:255" json:"-"`
	RoleCode     string `gorm:"size:8;not null;default:A004;index" json:"role_code"`
	IsBlocked    bool   `gorm:"not null;default:false" json:"is_blocked"`
}

// UserRepository defines the data access interface for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, req PageRequest) (*PageResult[User], error)
	Update(ctx context.Context, user *User) error
	// Delete removes the user and their project memberships.
	Delete(ctx context.Context, id uint) error
}

// UserService defines the business logic interface for users.
type UserService interface {
	CreateUser(ctx context.Context, name, email, password, roleCode string) (*User, error)
	GetUser(ctx context.Context, id uint) (*User, error)
	ListUsers(ctx context.Context, req PageRequest) (*PageResult[User], error)
	UpdateUser(ctx context.Context, id uint, name, email string) (*User, error)
	ChangeRole(ctx context.Context, id uint, roleCode string) (*User, error)
	ChangeBlocked(ctx context.Context, id uint, blocked bool) (*User, error)
	ChangePassword(ctx context.Context, id uint, oldPassword, newPassword string) error
	DeleteUser(ctx context.Context, id uint) error
}
