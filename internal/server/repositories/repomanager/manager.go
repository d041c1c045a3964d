package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophgallery/internal/dbx"
	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/folders"
	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/images"
	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DB handle or transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Images(db dbx.DBTX) images.Repository
	Folders(db dbx.DBTX) folders.Repository
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
