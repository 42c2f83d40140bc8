package repomanager

import (
	"context"
	"database/sql"

	"github.com/createsomethingtoday/identity/internal/dbx"
	"github.com/createsomethingtoday/identity/internal/server/migrations"
	"github.com/createsomethingtoday/identity/internal/server/repositories/refreshtokens"
	"github.com/createsomethingtoday/identity/internal/server/repositories/signingkeys"
	"github.com/createsomethingtoday/identity/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct {
}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) SigningKeys(db dbx.DBTX) signingkeys.Repository {
	return signingkeys.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return err
	}

	return nil
}
