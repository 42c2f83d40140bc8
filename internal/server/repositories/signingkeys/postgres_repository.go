package signingkeys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/createsomethingtoday/identity/internal/common"
	"github.com/createsomethingtoday/identity/internal/dbx"
	"github.com/createsomethingtoday/identity/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts conditionally: the WHERE NOT EXISTS guard closes the race
// between two workers both finding no active key and both generating one.
func (r *PostgresRepository) Create(ctx context.Context, key *models.SigningKey) (bool, error) {

	query :=
		`INSERT INTO signing_keys (id, private_jwk, public_jwk, algorithm, is_active)
         SELECT $1, $2, $3, $4, true
         WHERE NOT EXISTS (SELECT 1 FROM signing_keys WHERE is_active)
		 `

	res, err := r.db.ExecContext(ctx, query,
		key.ID, key.PrivateJWK, key.PublicJWK, key.Algorithm)

	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return n == 1, nil
}

func (r *PostgresRepository) GetActive(ctx context.Context) (*models.SigningKey, error) {
	query :=
		`SELECT id, private_jwk, public_jwk, algorithm, is_active, created_at FROM signing_keys
		 WHERE is_active
		 ORDER BY created_at DESC
		 LIMIT 1
		 `

	key := &models.SigningKey{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&key.ID, &key.PrivateJWK, &key.PublicJWK, &key.Algorithm, &key.IsActive, &key.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return key, nil
}

func (r *PostgresRepository) GetAll(ctx context.Context) ([]*models.SigningKey, error) {
	query :=
		`SELECT id, private_jwk, public_jwk, algorithm, is_active, created_at FROM signing_keys
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var keys []*models.SigningKey
	for rows.Next() {
		key := &models.SigningKey{}
		if err := rows.Scan(&key.ID, &key.PrivateJWK, &key.PublicJWK,
			&key.Algorithm, &key.IsActive, &key.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return keys, nil
}

func (r *PostgresRepository) Retire(ctx context.Context, id string) error {
	query :=
		`UPDATE signing_keys SET is_active = false
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
