package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/createsomethingtoday/identity/internal/common"
)

const testIssuer = "https://id.example.com"

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey error: %v", err)
	}
	return key
}

func newClaims(userID string, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{"app", "web"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:  "u@example.com",
		Tier:   "pro",
		Source: "direct",
	}
}

func TestMintAndParse_Success(t *testing.T) {
	t.Parallel()

	key := newKey(t)
	tok, err := MintAccessToken(key, "kid-1", newClaims("user-123", time.Hour))
	if err != nil {
		t.Fatalf("MintAccessToken error: %v", err)
	}

	got, err := ParseAccessToken(tok, testIssuer, map[string]*ecdsa.PublicKey{"kid-1": &key.PublicKey})
	if err != nil {
		t.Fatalf("ParseAccessToken error: %v", err)
	}
	if got.Subject != "user-123" {
		t.Fatalf("subject mismatch: got %q want %q", got.Subject, "user-123")
	}
	if got.Email != "u@example.com" || got.Tier != "pro" || got.Source != "direct" {
		t.Fatalf("custom claims mismatch: %+v", got)
	}
}

func TestParse_Expired(t *testing.T) {
	t.Parallel()

	key := newKey(t)
	tok, err := MintAccessToken(key, "kid-1", newClaims("u1", -1*time.Second))
	if err != nil {
		t.Fatalf("MintAccessToken error: %v", err)
	}

	_, err = ParseAccessToken(tok, testIssuer, map[string]*ecdsa.PublicKey{"kid-1": &key.PublicKey})
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParse_UnknownKid(t *testing.T) {
	t.Parallel()

	key := newKey(t)
	tok, err := MintAccessToken(key, "kid-gone", newClaims("u1", time.Hour))
	if err != nil {
		t.Fatalf("MintAccessToken error: %v", err)
	}

	// key set holds a different kid: the signer is unknown to the validator
	_, err = ParseAccessToken(tok, testIssuer, map[string]*ecdsa.PublicKey{"kid-1": &key.PublicKey})
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParse_RetiredKeyStillVerifies(t *testing.T) {
	t.Parallel()

	oldKey := newKey(t)
	newSigner := newKey(t)

	tok, err := MintAccessToken(oldKey, "kid-old", newClaims("u1", time.Hour))
	if err != nil {
		t.Fatalf("MintAccessToken error: %v", err)
	}

	keyset := map[string]*ecdsa.PublicKey{
		"kid-old": &oldKey.PublicKey,
		"kid-new": &newSigner.PublicKey,
	}
	if _, err := ParseAccessToken(tok, testIssuer, keyset); err != nil {
		t.Fatalf("token from retired key should verify while kid is published: %v", err)
	}
}

func TestParse_WrongKey(t *testing.T) {
	t.Parallel()

	signKey := newKey(t)
	otherKey := newKey(t)

	tok, err := MintAccessToken(signKey, "kid-1", newClaims("u1", time.Hour))
	if err != nil {
		t.Fatalf("MintAccessToken error: %v", err)
	}

	_, err = ParseAccessToken(tok, testIssuer, map[string]*ecdsa.PublicKey{"kid-1": &otherKey.PublicKey})
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for bad signature, got %v", err)
	}
}

func TestParse_WrongIssuer(t *testing.T) {
	t.Parallel()

	key := newKey(t)
	claims := newClaims("u1", time.Hour)
	claims.Issuer = "https://evil.example.com"
	tok, err := MintAccessToken(key, "kid-1", claims)
	if err != nil {
		t.Fatalf("MintAccessToken error: %v", err)
	}

	_, err = ParseAccessToken(tok, testIssuer, map[string]*ecdsa.PublicKey{"kid-1": &key.PublicKey})
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for issuer mismatch, got %v", err)
	}
}

func TestParse_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := ParseAccessToken("not.a.jwt", testIssuer, map[string]*ecdsa.PublicKey{})
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for malformed token, got %v", err)
	}
}
