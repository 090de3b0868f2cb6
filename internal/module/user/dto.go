package user

// CreateUserRequest represents the input for creating a new user.
type CreateUserRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	RoleCode string `json:"role_code" binding:"omitempty,oneof=A001 A002 A003 A004"`
}

// UpdateUserRequest represents the input for updating an existing user.
type UpdateUserRequest struct {
	Name  string `json:"name" binding:"required,min=2,max=100"`
	Email string `json:"email" binding:"required,email"`
}

// ChangeRoleRequest assigns a role code to a user.
type ChangeRoleRequest struct {
	RoleCode string `json:"role_code" binding:"required,oneof=A001 A002 A003 A004"`
}

// ChangeStatusRequest blocks or unblocks a user.
type ChangeStatusRequest struct {
	IsBlocked *bool `json:"is_blocked" binding:"required"`
}

// ChangePasswordRequest replaces the caller's own password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// UserSummary is the public view of a user offered to claim submitters when
// choosing an approver.
type UserSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
