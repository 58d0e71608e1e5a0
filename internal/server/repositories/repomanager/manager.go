package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophfiles/internal/dbx"
	"github.com/dmitrijs2005/gophfiles/internal/server/repositories/chunks"
	"github.com/dmitrijs2005/gophfiles/internal/server/repositories/files"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Files(db dbx.DBTX) files.Repository
	Chunks(db dbx.DBTX) chunks.Repository
}
