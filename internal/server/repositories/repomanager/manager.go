package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/civicsync/internal/dbx"
	"github.com/dmitrijs2005/civicsync/internal/server/repositories/issues"
	"github.com/dmitrijs2005/civicsync/internal/server/repositories/updates"
	"github.com/dmitrijs2005/civicsync/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either a *sql.DB or a
// transaction, so the same code runs inside and outside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Issues(db dbx.DBTX) issues.Repository
	Updates(db dbx.DBTX) updates.Repository
}
