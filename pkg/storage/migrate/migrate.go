package migrate

import (
	"context"
	"sync"

	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/mysql"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/postgres"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/sqlite"
)

// MigrationConfig contains the configuration needed for running migrations.
type MigrationConfig = storage.MigrationConfig

// memoryEngine keeps its schema in Go structs and has nothing to migrate.
const memoryEngine = "memory"

// Registry holds the providers for every SQL engine rawrepo can run on.
var Registry = sync.OnceValue(func() *storage.MigratorRegistry {
	return storage.NewMigratorRegistry(
		postgres.NewPostgresMigrationProvider(),
		mysql.NewMySQLMigrationProvider(),
		sqlite.NewSQLiteMigrationProvider(),
	)
})

// RunMigrationsWithRegistry runs cfg against the provider registry holds for cfg.Engine.
func RunMigrationsWithRegistry(ctx context.Context, registry *storage.MigratorRegistry, cfg storage.MigrationConfig) error {
	if cfg.Engine == memoryEngine {
		if cfg.Logger != nil {
			cfg.Logger.Info("memory datastore has no schema, skipping migrations")
		}
		return nil
	}

	provider, err := registry.Provider(cfg.Engine)
	if err != nil {
		return err
	}

	return provider.RunMigrations(ctx, cfg)
}

// RunMigrations migrates the configured datastore. A zero TargetVersion moves the schema
// to the latest revision; any other value moves it up or down to that revision.
func RunMigrations(ctx context.Context, cfg storage.MigrationConfig) error {
	return RunMigrationsWithRegistry(ctx, Registry(), cfg)
}
