// Package signingkeys declares the repository contract for persisted ES256
// key pairs.
package signingkeys

import (
	"context"

	"github.com/createsomethingtoday/identity/internal/server/models"
)

type Repository interface {
	// Create inserts key as the active signer only if no active key exists,
	// and reports whether the insert happened. A false result means another
	// worker created a key first; re-read with GetActive.
	Create(ctx context.Context, key *models.SigningKey) (bool, error)

	// GetActive returns the current signing key, or common.ErrorNotFound
	// when no key is active.
	GetActive(ctx context.Context) (*models.SigningKey, error)

	// GetAll returns every key, active or retired. Retired keys stay in the
	// verification set until their last issued token has expired.
	GetAll(ctx context.Context) ([]*models.SigningKey, error)

	// Retire flips the active flag off. The row is kept for verification.
	Retire(ctx context.Context, id string) error
}
