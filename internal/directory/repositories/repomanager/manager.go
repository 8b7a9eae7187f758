package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/policonsole/internal/dbx"
	"github.com/dmitrijs2005/policonsole/internal/directory/repositories/agents"
	"github.com/dmitrijs2005/policonsole/internal/directory/repositories/refreshtokens"
)

// RepositoryManager vends repositories bound to a DBTX, so services can run
// the same repositories inside or outside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Agents(db dbx.DBTX) agents.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
