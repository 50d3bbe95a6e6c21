package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/sqlcommon"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/test"
	storagefixtures "github.com/dbcdk/rawrepo-record-service/pkg/testfixtures/storage"
)

func TestSQLiteDatastore(t *testing.T) {
	testDatastore := storagefixtures.RunDatastoreTestContainer(t, "sqlite")

	uri := testDatastore.GetConnectionURI(true)
	ds, err := New(uri, sqlcommon.NewConfig())
	require.NoError(t, err)
	defer ds.Close()
	test.RunAllTests(t, ds)
}

func TestSQLiteDatastoreAfterCloseIsNotReady(t *testing.T) {
	testDatastore := storagefixtures.RunDatastoreTestContainer(t, "sqlite")

	ds, err := New(testDatastore.GetConnectionURI(true), sqlcommon.NewConfig())
	require.NoError(t, err)
	ds.Close()
	status, err := ds.IsReady(context.Background())
	require.Error(t, err)
	require.False(t, status.IsReady)
}

func TestSQLiteDatastoreRequiresMigrations(t *testing.T) {
	uri := "file:" + filepath.Join(t.TempDir(), "empty.db")
	ds, err := New(uri, sqlcommon.NewConfig())
	require.NoError(t, err)
	defer ds.Close()

	status, err := ds.IsReady(context.Background())
	require.NoError(t, err)
	require.False(t, status.IsReady)
	require.Contains(t, status.Message, "datastore requires migrations")
}

func TestPrepareDSN(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		dsn, err := PrepareDSN("file:test.db")
		require.NoError(t, err)
		require.Equal(t, "file:test.db?_pragma=journal_mode%28WAL%29&_pragma=busy_timeout%28100%29&_txlock=immediate", dsn)
	})

	t.Run("keeps_explicit_pragmas", func(t *testing.T) {
		dsn, err := PrepareDSN("file:test.db?_pragma=journal_mode(DELETE)&_txlock=deferred")
		require.NoError(t, err)
		require.Contains(t, dsn, "journal_mode%28DELETE%29")
		require.NotContains(t, dsn, "WAL")
		require.Contains(t, dsn, "_txlock=deferred")
	})
}

func TestSQLiteMigrationProvider(t *testing.T) {
	provider := NewSQLiteMigrationProvider()
	require.Equal(t, "sqlite", provider.GetSupportedEngine())
	require.Implements(t, (*storage.MigrationProvider)(nil), provider)

	ctx := context.Background()
	cfg := storage.MigrationConfig{
		Engine:  "sqlite",
		URI:     "file:" + filepath.Join(t.TempDir(), "migrate.db"),
		Timeout: 5 * time.Second,
	}

	require.NoError(t, provider.RunMigrations(ctx, cfg))
	version, err := provider.GetCurrentVersion(ctx, cfg)
	require.NoError(t, err)
	require.Equal(t, int64(1), version)

	t.Run("rerun_is_noop", func(t *testing.T) {
		require.NoError(t, provider.RunMigrations(ctx, cfg))
		version, err := provider.GetCurrentVersion(ctx, cfg)
		require.NoError(t, err)
		require.Equal(t, int64(1), version)
	})

	t.Run("invalid_path", func(t *testing.T) {
		err := provider.RunMigrations(ctx, storage.MigrationConfig{
			Engine:  "sqlite",
			URI:     "/invalid/path/that/does/not/exist/db.sqlite",
			Timeout: 1 * time.Second,
		})
		require.Error(t, err)
	})
}
