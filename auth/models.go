package auth

import "time"

type Role string

const (
	// RoleAuthor creates, edits, submits, and executes contracts.
	RoleAuthor Role = "author"
	// RoleApprover reviews contracts submitted for approval.
	RoleApprover Role = "approver"
)

// User is the domain representation of a registered user.
// It mirrors the users table and should not include JSON annotations so it
// can be reused by different presentation layers.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	FullName     string
	Initials     string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegisterRequest contains user registration data supplied by callers.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Initials string `json:"initials"`
	Role     Role   `json:"role"`
}

// LoginRequest contains user login credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
