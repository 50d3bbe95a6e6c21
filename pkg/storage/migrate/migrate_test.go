package migrate_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/migrate"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/sqlite"
)

func TestMigrateSQLiteRollback(t *testing.T) {
	ctx := context.Background()
	uri := "file:" + filepath.Join(t.TempDir(), "rawrepo.db")

	cfg := migrate.MigrationConfig{
		Engine:  "sqlite",
		URI:     uri,
		Timeout: 5 * time.Second,
		Verbose: true,
	}
	require.NoError(t, migrate.RunMigrations(ctx, cfg))

	provider := sqlite.NewSQLiteMigrationProvider()
	version, err := provider.GetCurrentVersion(ctx, cfg)
	require.NoError(t, err)
	require.Equal(t, int64(1), version)

	// going to a version that doesn't exist yet is a no-op
	cfg.TargetVersion = 2
	require.NoError(t, migrate.RunMigrations(ctx, cfg))
}

func TestMigrateMemoryIsNoop(t *testing.T) {
	require.NoError(t, migrate.RunMigrations(context.Background(), migrate.MigrationConfig{Engine: "memory"}))
}

func TestDefaultRegistryEngines(t *testing.T) {
	require.Equal(t, []string{"mysql", "postgres", "sqlite"}, migrate.Registry().Engines())
}

func TestMigrateUnknownEngine(t *testing.T) {
	err := migrate.RunMigrations(context.Background(), migrate.MigrationConfig{Engine: "oracle"})
	require.EqualError(t, err, "no schema migrations for datastore engine 'oracle' (supported: mysql, postgres, sqlite)")
}

type recordingProvider struct {
	runs int
}

func (r *recordingProvider) RunMigrations(context.Context, storage.MigrationConfig) error {
	r.runs++
	return nil
}

func (r *recordingProvider) GetCurrentVersion(context.Context, storage.MigrationConfig) (int64, error) {
	return int64(r.runs), nil
}

func (r *recordingProvider) GetSupportedEngine() string {
	return "custom"
}

func TestRunMigrationsWithRegistry(t *testing.T) {
	provider := &recordingProvider{}
	registry := storage.NewMigratorRegistry(provider)

	require.NoError(t, migrate.RunMigrationsWithRegistry(context.Background(), registry, migrate.MigrationConfig{Engine: "custom"}))
	require.Equal(t, 1, provider.runs)
	require.Equal(t, []string{"custom"}, registry.Engines())
}
