package storage

import (
	"context"
	"fmt"
	"time"
)

// MigrationConfig carries everything a MigrationProvider needs to
// bring a datastore to a target schema version.
type MigrationConfig struct {
	Engine        string
	URI           string
	TargetVersion uint
	Timeout       time.Duration
	Verbose       bool
}

// MigrationProvider runs goose migrations for one datastore engine.
type MigrationProvider interface {
	GetSupportedEngine() string
	RunMigrations(ctx context.Context, config MigrationConfig) error
	GetCurrentVersion(ctx context.Context, config MigrationConfig) (int64, error)
}

// RunMigrations dispatches to the provider matching config.Engine.
func RunMigrations(ctx context.Context, config MigrationConfig, providers ...MigrationProvider) error {
	for _, provider := range providers {
		if provider.GetSupportedEngine() == config.Engine {
			return provider.RunMigrations(ctx, config)
		}
	}
	return fmt.Errorf("unsupported datastore engine: %q", config.Engine)
}
