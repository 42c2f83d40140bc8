// Package services contains the identity core's business logic. This file
// implements AuthService: credential verification, token issuance, refresh
// rotation with reuse detection, validation, and bulk revocation.
package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/createsomethingtoday/identity/internal/common"
	"github.com/createsomethingtoday/identity/internal/dbx"
	"github.com/createsomethingtoday/identity/internal/logging"
	"github.com/createsomethingtoday/identity/internal/server/auth"
	"github.com/createsomethingtoday/identity/internal/server/config"
	"github.com/createsomethingtoday/identity/internal/server/keys"
	"github.com/createsomethingtoday/identity/internal/server/models"
	"github.com/createsomethingtoday/identity/internal/server/password"
	"github.com/createsomethingtoday/identity/internal/server/repositories/repomanager"
)

// refreshSecretSize is the entropy of the opaque refresh secret, in bytes.
const refreshSecretSize = 48

// TokenPair bundles a short-lived access token and a long-lived refresh
// token. RefreshToken is the plaintext secret; this is the only place it
// ever exists outside the client.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // access token lifetime, seconds
}

// AuthService provides the authentication operations consumed by the
// surrounding product:
//   - VerifyCredentials / Register: password checks and signup
//   - IssueTokens: mint an access+refresh pair after authentication
//   - RotateTokens: single-use refresh rotation with family revocation on reuse
//   - ValidateAccessToken: stateless bearer-token validation
//   - RevokeAllForUser: logout / password change / account deletion
type AuthService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	keys                         *keys.Manager
	logger                       logging.Logger
	issuer                       string
	audience                     []string
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	upgradeLegacyHashes          bool
}

// NewAuthService constructs an AuthService from repositories, the signing
// key manager, and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, km *keys.Manager, logger logging.Logger, cfg *config.Config) *AuthService {
	return &AuthService{
		db:                           db,
		repomanager:                  m,
		keys:                         km,
		logger:                       logger.With("module", "auth_service"),
		issuer:                       cfg.Issuer,
		audience:                     cfg.Audience,
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		upgradeLegacyHashes:          cfg.UpgradeLegacyHashes,
	}
}

// VerifyCredentials checks email+password against the stored account.
// Unknown email, soft-deleted account and wrong password all collapse to
// ErrorUnauthorized; only storage failures surface differently.
func (s *AuthService) VerifyCredentials(ctx context.Context, email string, plaintext string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	if user.IsDeleted() {
		return nil, common.ErrorUnauthorized
	}
	if !password.Verify(plaintext, user.PasswordHash) {
		return nil, common.ErrorUnauthorized
	}

	if s.upgradeLegacyHashes && password.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user, plaintext)
	}

	return user, nil
}

// Register creates an account with a canonical-format hash and issues its
// first token pair.
func (s *AuthService) Register(ctx context.Context, email, plaintext, tier, source string) (*models.User, *TokenPair, error) {
	hash, err := password.Hash(plaintext)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		Tier:         tier,
		Source:       source,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("error creating user: %w", err)
	}

	pair, err := s.IssueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// IssueTokens mints an access token signed by the active key and a fresh
// refresh token opening a new family. The refresh secret is returned in
// plaintext exactly once; storage only ever sees its hash.
func (s *AuthService) IssueTokens(ctx context.Context, user *models.User) (*TokenPair, error) {
	return s.issueTokenPair(ctx, s.db, user, uuid.NewString())
}

// RotateTokens validates a presented refresh secret and either rotates it
// into a new pair or rejects. Presenting an already-consumed token revokes
// the entire family: a replayed token means the chain can no longer be
// trusted. Every rejection is the same generic ErrInvalidToken.
func (s *AuthService) RotateTokens(ctx context.Context, presented string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.FindByHash(ctx, hashRefreshSecret(presented))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	now := time.Now()

	if !token.ExpiresAt.After(now) {
		if err := repo.Revoke(ctx, token.ID); err != nil {
			return nil, fmt.Errorf("error revoking expired token: %w", err)
		}
		return nil, common.ErrInvalidToken
	}

	if token.RevokedAt != nil {
		s.logger.Warn(ctx, "refresh token reuse detected, revoking family",
			"user_id", token.UserID, "family_id", token.FamilyID)
		if err := repo.RevokeFamily(ctx, token.FamilyID); err != nil {
			return nil, fmt.Errorf("error revoking token family: %w", err)
		}
		return nil, common.ErrInvalidToken
	}

	var pair *TokenPair
	rejected := false

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)

		// Conditional update: exactly one of two racing rotations gets
		// consumed=true, the loser lands in the reuse branch below.
		consumed, err := repoTx.Consume(ctx, token.ID)
		if err != nil {
			return fmt.Errorf("error consuming refresh token: %w", err)
		}
		if !consumed {
			s.logger.Warn(ctx, "lost rotation race, revoking family",
				"user_id", token.UserID, "family_id", token.FamilyID)
			rejected = true
			return repoTx.RevokeFamily(ctx, token.FamilyID)
		}

		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			return fmt.Errorf("error loading token owner: %w", err)
		}
		if user.IsDeleted() {
			rejected = true
			return repoTx.RevokeFamily(ctx, token.FamilyID)
		}

		pair, err = s.issueTokenPair(ctx, tx, user, token.FamilyID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if rejected {
		return nil, common.ErrInvalidToken
	}

	return pair, nil
}

// ValidateAccessToken verifies a bearer JWT against the full verification
// key set. No database lookup happens beyond loading the key set.
func (s *AuthService) ValidateAccessToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	keyset, err := s.keys.VerificationKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading verification keys: %w", err)
	}
	return auth.ParseAccessToken(tokenString, s.issuer, keyset)
}

// RevokeAllForUser invalidates every outstanding refresh token the user
// owns. Access tokens already in flight expire on their own within the
// access TTL.
func (s *AuthService) RevokeAllForUser(ctx context.Context, userID string) error {
	repo := s.repomanager.RefreshTokens(s.db)
	if err := repo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("error revoking user tokens: %w", err)
	}
	return nil
}

// PublicKeySet exports the JWKS document for the well-known endpoint.
func (s *AuthService) PublicKeySet(ctx context.Context) (*jose.JSONWebKeySet, error) {
	return s.keys.JWKS(ctx)
}

// --- helpers below ---

// upgradeHash re-hashes a legacy-format password into the canonical format
// after a successful verification. Failures are logged and swallowed: the
// login already succeeded and the old hash still works.
func (s *AuthService) upgradeHash(ctx context.Context, user *models.User, plaintext string) {
	hash, err := password.Hash(plaintext)
	if err != nil {
		s.logger.Warn(ctx, "legacy hash upgrade failed", "user_id", user.ID, "error", err)
		return
	}
	repo := s.repomanager.Users(s.db)
	if err := repo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		s.logger.Warn(ctx, "legacy hash upgrade failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = hash
	s.logger.Info(ctx, "upgraded legacy password hash", "user_id", user.ID)
}

// hashRefreshSecret maps an opaque refresh secret to its storage key. The
// secret is high-entropy and single-use, so a fast hash is sufficient; a
// KDF would only slow down every rotation.
func hashRefreshSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func (s *AuthService) issueTokenPair(ctx context.Context, db dbx.DBTX, user *models.User, familyID string) (*TokenPair, error) {
	signer, err := s.keys.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("error obtaining signing key: %w", err)
	}

	now := time.Now()
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings(s.audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenValidityDuration)),
		},
		Email:  user.Email,
		Tier:   user.Tier,
		Source: user.Source,
	}

	access, err := auth.MintAccessToken(signer.Key, signer.Kid, claims)
	if err != nil {
		return nil, common.ErrorInternal
	}

	secret, err := common.MakeRandURLString(refreshSecretSize)
	if err != nil {
		return nil, common.ErrorInternal
	}

	repo := s.repomanager.RefreshTokens(db)
	err = repo.Create(ctx, &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: hashRefreshSecret(secret),
		FamilyID:  familyID,
		ExpiresAt: now.Add(s.refreshTokenValidityDuration),
	})
	if err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: secret,
		ExpiresIn:    int64(s.accessTokenValidityDuration.Seconds()),
	}, nil
}
