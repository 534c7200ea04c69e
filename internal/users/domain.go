package users

import "time"

// User is a directory entry for an account, including the roles it
// holds.
type User struct {
	ID              int64
	Name            string
	Surname         string
	Email           string
	Phone           string
	Address         string
	EmailVerifiedAt *time.Time
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Roles           []string
}

// Customer is a user presented through the customer directory.
type Customer struct {
	ID      int64
	Name    string
	Surname string
	Email   string
	Phone   string
	Address string
}

// CustomerInput carries customer create/update form values.
type CustomerInput struct {
	Name     string
	Surname  string
	Email    string
	Phone    string
	Address  string
	Password string
}
