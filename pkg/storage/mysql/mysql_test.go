package mysql

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dbcdk/rawrepo-record-service/pkg/storage/sqlcommon"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/test"
	storagefixtures "github.com/dbcdk/rawrepo-record-service/pkg/testfixtures/storage"
)

func TestMySQLDatastore(t *testing.T) {
	if os.Getenv("RAWREPO_TEST_DOCKER") == "" {
		t.Skip("set RAWREPO_TEST_DOCKER to run datastore tests against a mysql container")
	}
	testDatastore := storagefixtures.RunDatastoreTestContainer(t, "mysql")

	ds, err := New(testDatastore.GetConnectionURI(true), sqlcommon.NewConfig())
	require.NoError(t, err)
	defer ds.Close()
	test.RunAllTests(t, ds)
}

func TestPrepareDSN(t *testing.T) {
	t.Run("credentials_override", func(t *testing.T) {
		dsn, err := PrepareDSN("root:secret@tcp(localhost:3306)/rawrepo", "reader", "pwd")
		require.NoError(t, err)
		require.Equal(t, "reader:pwd@tcp(localhost:3306)/rawrepo?parseTime=true", dsn)
	})

	t.Run("keeps_existing_credentials", func(t *testing.T) {
		dsn, err := PrepareDSN("root:secret@tcp(localhost:3306)/rawrepo", "", "")
		require.NoError(t, err)
		require.Equal(t, "root:secret@tcp(localhost:3306)/rawrepo?parseTime=true", dsn)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := PrepareDSN("root:secret@tcp(localhost:3306", "", "")
		require.Error(t, err)
	})
}
