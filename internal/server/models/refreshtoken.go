package models

import "time"

// RefreshToken is the stored record of an opaque refresh secret. Only the
// sha256 hash of the secret is persisted; the plaintext leaves the server
// exactly once, in the response that issued it.
//
// FamilyID groups every token descended from one login via rotation. A nil
// RevokedAt means the token has not been consumed or revoked yet.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	FamilyID  string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Usable reports whether the token may still be presented for rotation.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}
