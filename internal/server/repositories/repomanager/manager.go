package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/weddingtma/internal/dbx"
	"github.com/dmitrijs2005/weddingtma/internal/server/repositories/galleries"
	"github.com/dmitrijs2005/weddingtma/internal/server/repositories/media"
	"github.com/dmitrijs2005/weddingtma/internal/server/repositories/rsvps"
	"github.com/dmitrijs2005/weddingtma/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same
// service code runs against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RSVPs(db dbx.DBTX) rsvps.Repository
	Galleries(db dbx.DBTX) galleries.Repository
	Media(db dbx.DBTX) media.Repository
}
