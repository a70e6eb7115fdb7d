package repomanager

import (
	"context"
	"database/sql"

	"github.com/olievortex/oliejournal/internal/dbx"
	"github.com/olievortex/oliejournal/internal/server/repositories/conversations"
	"github.com/olievortex/oliejournal/internal/server/repositories/entries"
	"github.com/olievortex/oliejournal/internal/server/repositories/usagelogs"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Entries(db dbx.DBTX) entries.Repository
	Conversations(db dbx.DBTX) conversations.Repository
	UsageLogs(db dbx.DBTX) usagelogs.Repository
}
