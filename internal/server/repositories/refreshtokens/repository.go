// Package refreshtokens declares the repository contract for refresh-token
// rows. Rows are looked up by secret hash and retired by setting revoked_at;
// nothing here ever sees the plaintext secret.
package refreshtokens

import (
	"context"

	"github.com/createsomethingtoday/identity/internal/server/models"
)

// Repository defines operations for storing, retrieving, and revoking
// refresh tokens.
type Repository interface {
	// Create stores a new token row. ID, TokenHash, FamilyID and ExpiresAt
	// must already be set by the caller.
	Create(ctx context.Context, token *models.RefreshToken) error

	// FindByHash looks up a row by the sha256 hash of the presented secret.
	// Returns common.ErrorNotFound when the hash is unknown.
	FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error)

	// Consume marks the row revoked only if it is not revoked already, and
	// reports whether this call performed the transition. A false result on
	// a row that was just read as usable means a concurrent rotation won.
	Consume(ctx context.Context, id string) (bool, error)

	// Revoke marks a single row revoked. Revoking an already-revoked row is
	// not an error.
	Revoke(ctx context.Context, id string) error

	// RevokeFamily revokes every row sharing familyID. Used on reuse
	// detection to invalidate the whole lineage.
	RevokeFamily(ctx context.Context, familyID string) error

	// RevokeAllForUser revokes every usable row owned by userID. Used by
	// logout, password change and account deletion.
	RevokeAllForUser(ctx context.Context, userID string) error
}
