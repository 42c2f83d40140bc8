// Package auth mints and parses the compact ES256 access tokens. Signing
// always uses the active key; parsing selects the public key by the token's
// kid header, so tokens issued under a since-retired key keep verifying.
package auth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/createsomethingtoday/identity/internal/common"
)

// Claims carries the registered claim set plus the account attributes the
// front-end properties consume. Never persisted.
type Claims struct {
	jwt.RegisteredClaims
	Email  string `json:"email"`
	Tier   string `json:"tier"`
	Source string `json:"source"`
}

// MintAccessToken signs claims with the given ES256 private key, stamping
// kid into the header so validators can pick the right public key.
func MintAccessToken(key *ecdsa.PrivateKey, kid string, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = kid

	tokenString, err := token.SignedString(key)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseAccessToken verifies signature, expiry and issuer against the
// provided verification key set. Rejections collapse to ErrTokenExpired or
// ErrInvalidToken; nothing about the failure mode leaks to the caller.
func ParseAccessToken(tokenString string, issuer string, keyset map[string]*ecdsa.PublicKey) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("token has no kid header")
		}
		pub, ok := keyset[kid]
		if !ok {
			return nil, fmt.Errorf("unknown kid %q", kid)
		}
		return pub, nil
	},
		jwt.WithValidMethods([]string{"ES256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
