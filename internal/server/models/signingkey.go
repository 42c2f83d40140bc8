package models

import "time"

// SigningKey is a persisted ES256 key pair. PrivateJWK and PublicJWK hold
// the JSON Web Key serialization of each half; ID doubles as the JWT "kid"
// header. Rows are never mutated after creation except IsActive, and are
// kept around after retirement so in-flight tokens still verify.
type SigningKey struct {
	ID         string
	PrivateJWK string
	PublicJWK  string
	Algorithm  string
	IsActive   bool
	CreatedAt  time.Time
}
