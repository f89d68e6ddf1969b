package user

import "time"

// Roles recognized by access control.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is a registered account.
type User struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	Role            string    `json:"role"`
	LocationEnabled bool      `json:"location_enabled"`
	CreatedAt       time.Time `json:"created_at"`
}

// IsAdmin reports whether the account carries the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
