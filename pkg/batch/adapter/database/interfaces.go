// Package database declares the database connection abstractions used by readers, writers,
// tasklets and the SQL job repository.
package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/coffeebatch/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/coffeebatch/pkg/batch/core/adapter"
	tx "github.com/tigerroll/coffeebatch/pkg/batch/core/tx"
)

// DBExecutor defines read operations performed directly on a connection.
type DBExecutor interface {
	// ExecuteQuery loads every row of target's table matching query (equality conditions) into target,
	// which must be a pointer to a slice of entities.
	ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error
	// ExecuteQueryAdvanced is ExecuteQuery with optional ordering and limit (limit <= 0 means none).
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error
	// ExecuteQueryWhere loads the rows of target's table matching a raw SQL condition with
	// positional args, with optional ordering and limit.
	ExecuteQueryWhere(ctx context.Context, target interface{}, condition string, args []interface{}, orderBy string, limit int) error
	// Count counts the rows of model's table matching query.
	Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error)
}

// DBConnection represents a named database connection.
// Writes issued directly on the connection (outside a Tx) autocommit.
type DBConnection interface {
	coreAdapter.ResourceConnection
	tx.TxExecutor
	DBExecutor

	// IsTableNotExistError reports whether err means a table does not exist.
	IsTableNotExistError(err error) bool
	// RefreshConnection pings the underlying pool.
	RefreshConnection(ctx context.Context) error
	// Config returns the settings the connection was opened with.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB.
	GetSQLDB() (*sql.DB, error)
}

// DBConnectionResolver resolves a healthy connection by name, reconnecting if necessary.
type DBConnectionResolver interface {
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// DBProvider opens and caches connections of one database type.
type DBProvider interface {
	// GetConnection returns the connection with the given name, opening it on first use.
	GetConnection(name string) (DBConnection, error)
	// ForceReconnect closes and reopens the connection with the given name.
	ForceReconnect(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the database type handled by this provider (e.g., "sqlite").
	Type() string
}

// DBProviderGroup is the fx value group collecting every DBProvider.
const DBProviderGroup = "db_providers"
