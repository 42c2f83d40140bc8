// Package repomanager bundles the per-table repositories behind one factory
// so services can run them against either a plain DB handle or an open
// transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/createsomethingtoday/identity/internal/dbx"
	"github.com/createsomethingtoday/identity/internal/server/repositories/refreshtokens"
	"github.com/createsomethingtoday/identity/internal/server/repositories/signingkeys"
	"github.com/createsomethingtoday/identity/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	SigningKeys(db dbx.DBTX) signingkeys.Repository
}
