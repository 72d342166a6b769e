package models

import "time"

// RoleAdmin grants access to the management panel.
const RoleAdmin = "admin"

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserWithRoles is a user listed together with its granted roles.
type UserWithRoles struct {
	User
	IsAdmin bool `db:"is_admin" json:"is_admin"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Search   string
	Page     int
	PageSize int
}
