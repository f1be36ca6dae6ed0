package storage

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	coreConfig "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
)

// ConnectionResolverParams defines the dependencies for NewConnectionResolver.
type ConnectionResolverParams struct {
	fx.In
	Cfg       *coreConfig.Config
	Providers []StorageProvider `group:"storage_providers"`
}

// ConnectionResolver picks the provider matching batch.storage and asks it for the connection.
type ConnectionResolver struct {
	storageType string
	providers   map[string]StorageProvider
}

// NewConnectionResolver creates a resolver from the providers contributed to the fx group.
func NewConnectionResolver(p ConnectionResolverParams) *ConnectionResolver {
	return NewConnectionResolverFromProviders(p.Cfg, p.Providers...)
}

// NewConnectionResolverFromProviders creates a resolver outside of fx.
func NewConnectionResolverFromProviders(cfg *coreConfig.Config, providers ...StorageProvider) *ConnectionResolver {
	byType := make(map[string]StorageProvider, len(providers))
	for _, p := range providers {
		byType[p.Type()] = p
	}
	return &ConnectionResolver{
		storageType: cfg.Coffee.Batch.Storage,
		providers:   byType,
	}
}

// ResolveStorageConnection implements StorageConnectionResolver.
func (r *ConnectionResolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	provider, ok := r.providers[r.storageType]
	if !ok {
		return nil, exception.NewBatchErrorf("storage", "no storage provider registered for type '%s' (connection '%s')", r.storageType, name)
	}
	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, exception.NewBatchError("storage", fmt.Sprintf("failed to open storage connection '%s'", name),
			fmt.Errorf("%w: %w", exception.ErrStorageUnavailable, err), false, true)
	}
	return conn, nil
}

// CloseAll closes the connections of every provider.
func (r *ConnectionResolver) CloseAll() error {
	var firstErr error
	for _, p := range r.providers {
		if err := p.CloseAll(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ StorageConnectionResolver = (*ConnectionResolver)(nil)
