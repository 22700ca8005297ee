package db

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
	"github.com/samber/oops"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// RunMigrations applies every pending migration from the embedded
// migrations directory.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "open migrations").Wrap(err)
	}

	provider, err := goose.NewProvider(goose.DialectMySQL, db, fsys,
		goose.WithDisableGlobalRegistry(true),
	)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create provider").Wrap(err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}

	for _, r := range results {
		logger.Info("applied migration", "version", r.Source.Version, "path", r.Source.Path, "duration", r.Duration)
	}
	return nil
}
