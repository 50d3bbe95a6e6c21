package storage

import (
	"fmt"
	"io"
	"io/fs"
	"log"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"github.com/dbcdk/rawrepo-record-service/assets"
)

const (
	mySQLImage = "mysql:8"
)

type mySQLTestContainer struct {
	addr     string
	version  int64
	username string
	password string
}

// NewMySQLTestContainer returns an implementation of the DatastoreTestContainer interface
// for MySQL.
func NewMySQLTestContainer() *mySQLTestContainer {
	return &mySQLTestContainer{}
}

func (m *mySQLTestContainer) GetDatabaseSchemaVersion() int64 {
	return m.version
}

// RunMySQLTestContainer runs a MySQL container, connects to it, and returns a
// bootstrapped implementation of the DatastoreTestContainer interface wired up for the
// MySQL datastore engine.
func (m *mySQLTestContainer) RunMySQLTestContainer(t testing.TB) DatastoreTestContainer {
	m.addr = runContainer(t, containerSpec{
		image: mySQLImage,
		env: []string{
			"MYSQL_DATABASE=rawrepo",
			"MYSQL_ROOT_PASSWORD=secret",
		},
		port: "3306",
	})
	m.username = "root"
	m.password = "secret"

	// the server logs unexpected EOF while it boots
	require.NoError(t, mysql.SetLogger(log.New(io.Discard, "", 0)))

	migrations, err := fs.Sub(assets.EmbedMigrations, assets.MySQLMigrationDir)
	require.NoError(t, err)

	m.version = migrate(t, "mysql", m.GetConnectionURI(true), goose.DialectMySQL, migrations)
	return m
}

// GetConnectionURI returns the mysql connection uri for the running mysql test container.
func (m *mySQLTestContainer) GetConnectionURI(includeCredentials bool) string {
	creds := ""
	if includeCredentials {
		creds = fmt.Sprintf("%s:%s", m.username, m.password)
	}

	return fmt.Sprintf("%s@tcp(%s)/rawrepo?parseTime=true", creds, m.addr)
}

func (m *mySQLTestContainer) GetUsername() string {
	return m.username
}

func (m *mySQLTestContainer) GetPassword() string {
	return m.password
}
