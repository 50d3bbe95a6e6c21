// Package storage runs throwaway datastores with the schema migrated, for tests.
package storage

import (
	"testing"
)

// DatastoreTestContainer represents a runnable container for testing specific datastore engines.
type DatastoreTestContainer interface {
	// GetConnectionURI returns a connection string to the datastore instance running inside
	// the container.
	GetConnectionURI(includeCredentials bool) string

	// GetDatabaseSchemaVersion returns the last migration applied when the container was created.
	GetDatabaseSchemaVersion() int64

	GetUsername() string
	GetPassword() string
}

type memoryTestContainer struct{}

func (m memoryTestContainer) GetConnectionURI(bool) string   { return "" }
func (m memoryTestContainer) GetUsername() string            { return "" }
func (m memoryTestContainer) GetPassword() string            { return "" }
func (m memoryTestContainer) GetDatabaseSchemaVersion() int64 { return 1 }

// RunDatastoreTestContainer constructs and runs a specific DatastoreTestContainer for the provided
// datastore engine and runs all migrations against it.
// The resources used by the test engine will be cleaned up after the test has finished.
func RunDatastoreTestContainer(t testing.TB, engine string) DatastoreTestContainer {
	switch engine {
	case "mysql":
		return NewMySQLTestContainer().RunMySQLTestContainer(t)
	case "postgres":
		return NewPostgresTestContainer().RunPostgresTestContainer(t)
	case "sqlite":
		return NewSqliteTestContainer().RunSqliteTestDatabase(t)
	case "memory":
		return memoryTestContainer{}
	default:
		t.Fatalf("'%s' engine is not supported by RunDatastoreTestContainer", engine)
		return nil
	}
}
