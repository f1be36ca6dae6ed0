package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database"
	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
	tx "github.com/tigerroll/coffeebatch/pkg/batch/core/tx"
)

// NewDefaultTransactionManager provides the transaction manager of the coffee connection.
func NewDefaultTransactionManager(resolver database.DBConnectionResolver) tx.TransactionManager {
	return NewGormTransactionManager(resolver, config.DefaultDBName)
}

// NewDefaultDBConnection resolves the coffee connection at startup so a bad DSN fails fast.
func NewDefaultDBConnection(lc fx.Lifecycle, resolver *GormDBConnectionResolver) (database.DBConnection, error) {
	conn, err := resolver.ResolveDBConnection(context.Background(), config.DefaultDBName)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return resolver.CloseAll()
		},
	})
	return conn, nil
}

// Module provides the connection resolver, the coffee connection and its transaction manager.
// Dialect modules (sqlite, mysql, postgres) contribute the DBProviders.
var Module = fx.Options(
	fx.Provide(NewGormDBConnectionResolver),
	fx.Provide(func(r *GormDBConnectionResolver) database.DBConnectionResolver { return r }),
	fx.Provide(NewDefaultDBConnection),
	fx.Provide(NewDefaultTransactionManager),
)
