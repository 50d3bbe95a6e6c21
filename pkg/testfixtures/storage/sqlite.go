package storage

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // SQLite driver.

	"github.com/dbcdk/rawrepo-record-service/assets"
)

type sqliteTestContainer struct {
	path    string
	version int64
}

// NewSqliteTestContainer returns an implementation of the DatastoreTestContainer interface
// for SQLite.
func NewSqliteTestContainer() *sqliteTestContainer {
	return &sqliteTestContainer{}
}

func (m *sqliteTestContainer) GetDatabaseSchemaVersion() int64 {
	return m.version
}

// RunSqliteTestDatabase creates a migrated sqlite database file in a temporary directory.
func (m *sqliteTestContainer) RunSqliteTestDatabase(t testing.TB) DatastoreTestContainer {
	m.path = filepath.Join(t.TempDir(), "rawrepo.db")

	migrations, err := fs.Sub(assets.EmbedMigrations, assets.SQLiteMigrationDir)
	require.NoError(t, err)

	m.version = migrate(t, "sqlite", m.GetConnectionURI(true), goose.DialectSQLite3, migrations)
	return m
}

// GetConnectionURI returns the sqlite connection uri for the database file.
func (m *sqliteTestContainer) GetConnectionURI(bool) string {
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(100)", m.path)
}

func (m *sqliteTestContainer) GetUsername() string {
	return ""
}

func (m *sqliteTestContainer) GetPassword() string {
	return ""
}
