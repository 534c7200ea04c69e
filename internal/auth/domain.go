package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID              int64
	Name            string
	Surname         string
	Email           string
	Phone           string
	Address         string
	PasswordHash    string
	EmailVerifiedAt *time.Time
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RegisterInput carries self-registration form values.
type RegisterInput struct {
	Name     string
	Surname  string
	Email    string
	Password string
}
