package auth

import "time"

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// RegisterRequest is the body of POST /auth/register. Registered accounts
// always get the member role; other roles are assigned by an administrator.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// UserInfo is the public profile of a user, as shown to that user.
type UserInfo struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	RoleCode  string    `json:"role_code"`
	CreatedAt time.Time `json:"created_at"`
}

const tokenType = "Bearer"

// TokenResponse is returned by login and refresh. ExpiresAt is in Unix
// seconds; claimctl persists it with the session.
type TokenResponse struct {
	Token     string   `json:"token"`
	TokenType string   `json:"token_type"`
	ExpiresAt int64    `json:"expires_at"`
	User      UserInfo `json:"user"`
}
