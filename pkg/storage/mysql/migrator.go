package mysql

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/cenkalti/backoff/v4"
	"github.com/pressly/goose/v3"

	"github.com/dbcdk/rawrepo-record-service/assets"
	"github.com/dbcdk/rawrepo-record-service/pkg/logger"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/sqlcommon"
)

// MySQLMigrationProvider implements MigrationProvider for MySQL.
type MySQLMigrationProvider struct{}

// NewMySQLMigrationProvider creates a new MySQL migration provider.
func NewMySQLMigrationProvider() *MySQLMigrationProvider {
	return &MySQLMigrationProvider{}
}

// GetSupportedEngine returns the database engine this provider supports.
func (p *MySQLMigrationProvider) GetSupportedEngine() string {
	return "mysql"
}

// RunMigrations executes MySQL database migrations.
func (p *MySQLMigrationProvider) RunMigrations(ctx context.Context, config storage.MigrationConfig) error {
	uri, err := PrepareDSN(config.URI, config.Username, config.Password)
	if err != nil {
		return err
	}

	db, err := goose.OpenDBWithDriver("mysql", uri)
	if err != nil {
		return fmt.Errorf("failed to open mysql connection: %w", err)
	}
	defer db.Close()

	// Test connection with backoff
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = config.Timeout
	err = backoff.Retry(func() error {
		return db.PingContext(ctx)
	}, policy)
	if err != nil {
		return fmt.Errorf("failed to initialize mysql connection: %w", err)
	}

	migrations, err := fs.Sub(assets.EmbedMigrations, assets.MySQLMigrationDir)
	if err != nil {
		return err
	}

	l := config.Logger
	if l == nil {
		l = logger.NewNoopLogger()
	}
	return sqlcommon.RunMigrations(ctx, db, goose.DialectMySQL, migrations, int64(config.TargetVersion), config.Verbose, l)
}

// GetCurrentVersion returns the current migration version.
func (p *MySQLMigrationProvider) GetCurrentVersion(ctx context.Context, config storage.MigrationConfig) (int64, error) {
	uri, err := PrepareDSN(config.URI, config.Username, config.Password)
	if err != nil {
		return 0, err
	}

	db, err := goose.OpenDBWithDriver("mysql", uri)
	if err != nil {
		return 0, fmt.Errorf("failed to open mysql connection: %w", err)
	}
	defer db.Close()

	if err := goose.SetDialect("mysql"); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, db)
}
