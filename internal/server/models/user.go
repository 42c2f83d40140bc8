// Package models holds the row types shared by repositories and services.
package models

import "time"

// User mirrors the account row owned by the surrounding product. This core
// reads it for authentication and only ever writes PasswordHash (legacy-hash
// upgrades and password changes).
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Tier         string
	Source       string
	DeletedAt    *time.Time
	CreatedAt    time.Time
}

// IsDeleted reports whether the account has been soft-deleted. A deleted
// user must never authenticate.
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}
