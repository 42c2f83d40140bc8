// Package users declares the repository contract for account rows. The core
// reads accounts for authentication and writes only the password hash.
package users

import (
	"context"

	"github.com/createsomethingtoday/identity/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail returns common.ErrorNotFound when no account matches.
	// Soft-deleted accounts are returned; deciding what to do with them is
	// the caller's problem.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID resolves a token owner during rotation. Same not-found and
	// soft-deletion semantics as GetByEmail.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// UpdatePasswordHash replaces the stored hash, used by password changes
	// and by legacy-hash upgrades after a successful login.
	UpdatePasswordHash(ctx context.Context, userID string, hash string) error
}
