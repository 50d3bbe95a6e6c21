package storage

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/dbcdk/rawrepo-record-service/pkg/logger"
)

// MigrationProvider moves one engine's rawrepo schema between revisions.
type MigrationProvider interface {
	// RunMigrations applies the embedded schema files. A zero TargetVersion means latest.
	RunMigrations(ctx context.Context, config MigrationConfig) error

	// GetCurrentVersion reports the revision the database is at.
	GetCurrentVersion(ctx context.Context, config MigrationConfig) (int64, error)

	// GetSupportedEngine names the engine, as used by the --datastore-engine flag.
	GetSupportedEngine() string
}

// MigrationConfig is what the migrate command hands a provider.
type MigrationConfig struct {
	Engine        string
	URI           string
	TargetVersion uint
	Timeout       time.Duration
	Verbose       bool
	Username      string
	Password      string
	Logger        logger.Logger
}

// MigratorRegistry maps engine names to their schema providers.
type MigratorRegistry struct {
	providers map[string]MigrationProvider
}

// NewMigratorRegistry returns a registry holding the given providers, keyed by
// the engine each one reports.
func NewMigratorRegistry(providers ...MigrationProvider) *MigratorRegistry {
	r := &MigratorRegistry{providers: make(map[string]MigrationProvider, len(providers))}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds p, replacing any provider already registered for its engine.
func (r *MigratorRegistry) Register(p MigrationProvider) {
	r.providers[p.GetSupportedEngine()] = p
}

// Provider looks up the provider for engine.
func (r *MigratorRegistry) Provider(engine string) (MigrationProvider, error) {
	p, ok := r.providers[engine]
	if !ok {
		return nil, fmt.Errorf("no schema migrations for datastore engine '%s' (supported: %s)",
			engine, strings.Join(r.Engines(), ", "))
	}
	return p, nil
}

// Engines lists the registered engine names in sorted order.
func (r *MigratorRegistry) Engines() []string {
	return slices.Sorted(maps.Keys(r.providers))
}
