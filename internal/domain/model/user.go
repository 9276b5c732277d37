package model

// User is a backend account as returned by /auth/me and the admin endpoints.
type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	FullName   *string   `json:"full_name"`
	Role       Role      `json:"role"`
	IsActive   bool      `json:"is_active"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  Timestamp `json:"created_at"`
}

// IsAdmin returns true if the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserCreate is the registration payload.
type UserCreate struct {
	Email    string  `json:"email" validate:"required,email"`
	Username string  `json:"username" validate:"required,min=3,max=50"`
	FullName *string `json:"full_name,omitempty"`
	Password string  `json:"password" validate:"required,min=8,max=100"`
}

// UserFilter mirrors the query parameters accepted by GET /admin/users.
type UserFilter struct {
	Skip     int
	Limit    int
	Role     Role
	IsActive *bool
}
