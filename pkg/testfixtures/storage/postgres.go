package storage

import (
	"fmt"
	"io/fs"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver.
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"github.com/dbcdk/rawrepo-record-service/assets"
)

const (
	postgresImage = "postgres:17"
)

type postgresTestContainer struct {
	addr     string
	version  int64
	username string
	password string
}

// NewPostgresTestContainer returns an implementation of the DatastoreTestContainer interface
// for Postgres.
func NewPostgresTestContainer() *postgresTestContainer {
	return &postgresTestContainer{}
}

func (p *postgresTestContainer) GetDatabaseSchemaVersion() int64 {
	return p.version
}

// RunPostgresTestContainer runs a Postgres container, connects to it, and returns a
// bootstrapped implementation of the DatastoreTestContainer interface wired up for the
// Postgres datastore engine.
func (p *postgresTestContainer) RunPostgresTestContainer(t testing.TB) DatastoreTestContainer {
	p.addr = runContainer(t, containerSpec{
		image: postgresImage,
		env: []string{
			"POSTGRES_DB=rawrepo",
			"POSTGRES_PASSWORD=secret",
		},
		port: "5432",
	})
	p.username = "postgres"
	p.password = "secret"

	migrations, err := fs.Sub(assets.EmbedMigrations, assets.PostgresMigrationDir)
	require.NoError(t, err)

	p.version = migrate(t, "pgx", p.GetConnectionURI(true), goose.DialectPostgres, migrations)
	return p
}

// GetConnectionURI returns the postgres connection uri for the running postgres test container.
func (p *postgresTestContainer) GetConnectionURI(includeCredentials bool) string {
	creds := ""
	if includeCredentials {
		creds = fmt.Sprintf("%s:%s@", p.username, p.password)
	}

	return fmt.Sprintf("postgres://%s%s/rawrepo?sslmode=disable", creds, p.addr)
}

func (p *postgresTestContainer) GetUsername() string {
	return p.username
}

func (p *postgresTestContainer) GetPassword() string {
	return p.password
}
