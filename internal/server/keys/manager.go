// Package keys owns the ES256 signing-key material: lazy creation of the
// active key, the verification key set, rotation, and the public JWKS
// document. Key pairs persist as JSON Web Keys so they survive restarts and
// re-import cleanly at verification time.
package keys

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"

	"github.com/createsomethingtoday/identity/internal/common"
	"github.com/createsomethingtoday/identity/internal/logging"
	"github.com/createsomethingtoday/identity/internal/server/models"
	"github.com/createsomethingtoday/identity/internal/server/repositories/repomanager"
)

// Algorithm is the only signing algorithm this service issues.
const Algorithm = "ES256"

// Signer is the active private key with its key id, ready for JWT minting.
type Signer struct {
	Kid string
	Key *ecdsa.PrivateKey
}

// Manager reads and creates signing keys through the signingkeys repository.
// It holds no key material in process state; every call is a query, so any
// number of workers can share the same storage.
type Manager struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewManager(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *Manager {
	return &Manager{db: db, repomanager: m, logger: logger.With("module", "keys")}
}

// Active returns the current signing key, creating one if none is active.
// The create path races benignly: the conditional insert admits one winner
// and everyone else re-reads the winner's key.
func (m *Manager) Active(ctx context.Context) (*Signer, error) {
	repo := m.repomanager.SigningKeys(m.db)

	row, err := repo.GetActive(ctx)
	if errors.Is(err, common.ErrorNotFound) {
		return m.createActive(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("loading active key: %w", err)
	}

	return parseSigner(row)
}

// VerificationKeys returns every persisted public key by kid, active and
// retired alike, so tokens issued just before a rotation still verify.
func (m *Manager) VerificationKeys(ctx context.Context) (map[string]*ecdsa.PublicKey, error) {
	repo := m.repomanager.SigningKeys(m.db)

	rows, err := repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading verification keys: %w", err)
	}

	set := make(map[string]*ecdsa.PublicKey, len(rows))
	for _, row := range rows {
		pub, err := parsePublic(row)
		if err != nil {
			return nil, err
		}
		set[row.ID] = pub
	}
	return set, nil
}

// JWKS exports the public half of every key as a JSON Web Key Set.
func (m *Manager) JWKS(ctx context.Context) (*jose.JSONWebKeySet, error) {
	repo := m.repomanager.SigningKeys(m.db)

	rows, err := repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading keys for jwks: %w", err)
	}

	set := &jose.JSONWebKeySet{}
	for _, row := range rows {
		var jwk jose.JSONWebKey
		if err := json.Unmarshal([]byte(row.PublicJWK), &jwk); err != nil {
			return nil, fmt.Errorf("decoding public jwk %s: %w", row.ID, err)
		}
		set.Keys = append(set.Keys, jwk)
	}
	return set, nil
}

// Rotate retires the current signer and creates a fresh active key. Old
// rows stay in the verification set; pruning them after the token window is
// an operator task.
func (m *Manager) Rotate(ctx context.Context) (*Signer, error) {
	repo := m.repomanager.SigningKeys(m.db)

	row, err := repo.GetActive(ctx)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("loading active key: %w", err)
	}
	if err == nil {
		if err := repo.Retire(ctx, row.ID); err != nil {
			return nil, fmt.Errorf("retiring key %s: %w", row.ID, err)
		}
		m.logger.Info(ctx, "retired signing key", "kid", row.ID)
	}

	return m.createActive(ctx)
}

func (m *Manager) createActive(ctx context.Context) (*Signer, error) {
	repo := m.repomanager.SigningKeys(m.db)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	kid := uuid.NewString()

	row, err := buildRow(kid, key)
	if err != nil {
		return nil, err
	}

	inserted, err := repo.Create(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("storing key: %w", err)
	}
	if !inserted {
		// another worker created the active key first
		row, err = repo.GetActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("re-reading active key: %w", err)
		}
		return parseSigner(row)
	}

	m.logger.Info(ctx, "created signing key", "kid", kid)
	return &Signer{Kid: kid, Key: key}, nil
}

func buildRow(kid string, key *ecdsa.PrivateKey) (*models.SigningKey, error) {
	priv := jose.JSONWebKey{Key: key, KeyID: kid, Algorithm: Algorithm, Use: "sig"}
	pub := jose.JSONWebKey{Key: &key.PublicKey, KeyID: kid, Algorithm: Algorithm, Use: "sig"}

	privJSON, err := json.Marshal(priv)
	if err != nil {
		return nil, fmt.Errorf("encoding private jwk: %w", err)
	}
	pubJSON, err := json.Marshal(pub)
	if err != nil {
		return nil, fmt.Errorf("encoding public jwk: %w", err)
	}

	return &models.SigningKey{
		ID:         kid,
		PrivateJWK: string(privJSON),
		PublicJWK:  string(pubJSON),
		Algorithm:  Algorithm,
		IsActive:   true,
	}, nil
}

func parseSigner(row *models.SigningKey) (*Signer, error) {
	var jwk jose.JSONWebKey
	if err := json.Unmarshal([]byte(row.PrivateJWK), &jwk); err != nil {
		return nil, fmt.Errorf("decoding private jwk %s: %w", row.ID, err)
	}
	key, ok := jwk.Key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key %s: %w", row.ID, common.ErrNoActiveKey)
	}
	return &Signer{Kid: row.ID, Key: key}, nil
}

func parsePublic(row *models.SigningKey) (*ecdsa.PublicKey, error) {
	var jwk jose.JSONWebKey
	if err := json.Unmarshal([]byte(row.PublicJWK), &jwk); err != nil {
		return nil, fmt.Errorf("decoding public jwk %s: %w", row.ID, err)
	}
	pub, ok := jwk.Key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("key %s is not an EC public key", row.ID)
	}
	return pub, nil
}
