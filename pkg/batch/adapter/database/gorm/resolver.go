package gorm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/fx"

	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database"
	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// GormDBConnectionResolver implements database.DBConnectionResolver over the registered DBProviders.
type GormDBConnectionResolver struct {
	dbProviders map[string]database.DBProvider // keyed by database type
	cfg         *config.Config
}

// DBConnectionResolverParams are the fx dependencies of NewGormDBConnectionResolver.
type DBConnectionResolverParams struct {
	fx.In
	DBProviders []database.DBProvider `group:"db_providers"`
	Cfg         *config.Config
}

// NewGormDBConnectionResolver creates a resolver over every provider in the db_providers group.
func NewGormDBConnectionResolver(p DBConnectionResolverParams) *GormDBConnectionResolver {
	return NewGormDBConnectionResolverFromProviders(p.Cfg, p.DBProviders...)
}

// NewGormDBConnectionResolverFromProviders creates a resolver without fx.
func NewGormDBConnectionResolverFromProviders(cfg *config.Config, providers ...database.DBProvider) *GormDBConnectionResolver {
	providerMap := make(map[string]database.DBProvider, len(providers))
	for _, provider := range providers {
		providerMap[provider.Type()] = provider
	}
	return &GormDBConnectionResolver{dbProviders: providerMap, cfg: cfg}
}

// ResolveDBConnection returns the connection with the given name. A connection that fails
// to ping is reopened once, unless the ping failed because ctx is done.
func (r *GormDBConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (database.DBConnection, error) {
	dbConfig, err := LookupDatabaseConfig(r.cfg, name)
	if err != nil {
		return nil, fmt.Errorf("DBConnectionResolver: %w", err)
	}

	provider, ok := r.dbProviders[dbConfig.Type]
	if !ok {
		return nil, fmt.Errorf("DBConnectionResolver: DBProvider for type '%s' not found for connection '%s'", dbConfig.Type, name)
	}

	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, fmt.Errorf("DBConnectionResolver: failed to get connection '%s': %w", name, err)
	}

	if pingErr := conn.RefreshConnection(ctx); pingErr != nil {
		// A ping cut short by the caller says nothing about the pool, which other callers share.
		if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(pingErr, context.Canceled) || errors.Is(pingErr, context.DeadlineExceeded) {
			if ctxErr == nil {
				ctxErr = pingErr
			}
			return nil, fmt.Errorf("DBConnectionResolver: resolving connection '%s' interrupted: %w", name, ctxErr)
		}
		logger.Warnf("DBConnectionResolver: connection '%s' is invalid (%v). Attempting to reconnect.", name, pingErr)
		reconnected, reconnectErr := provider.ForceReconnect(name)
		if reconnectErr != nil {
			return nil, database.ClassifyError(fmt.Errorf("DBConnectionResolver: failed to reconnect connection '%s': %w", name, reconnectErr))
		}
		logger.Infof("DBConnectionResolver: successfully reconnected connection '%s'.", name)
		return reconnected, nil
	}
	return conn, nil
}

// CloseAll closes the connections of every provider.
func (r *GormDBConnectionResolver) CloseAll() error {
	var lastErr error
	for _, provider := range r.dbProviders {
		if err := provider.CloseAll(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
