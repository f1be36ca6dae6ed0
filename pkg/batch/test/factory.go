// Package test holds helpers shared by the package tests: mocks of the transaction and connection
// contracts, a migrated SQLite database, and a go-sqlmock backed connection.
package test

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	dbadapter "github.com/tigerroll/coffeebatch/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/coffeebatch/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/coffeebatch/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/coffeebatch/pkg/batch/component/tasklet/migration"
	"github.com/tigerroll/coffeebatch/pkg/batch/component/tasklet/migration/filesystem"
	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
)

// TestDB is a migrated SQLite database in a temporary directory.
type TestDB struct {
	Config    *config.Config
	Resolver  *gormadapter.GormDBConnectionResolver
	Conn      dbadapter.DBConnection
	TxManager *gormadapter.GormTransactionManager
}

// NewSQLiteTestDB opens a file-backed SQLite database registered as the "coffee" connection and
// applies the batch metadata migrations plus appMigrations, if not nil. Everything is closed
// when the test ends.
func NewSQLiteTestDB(t *testing.T, appMigrations fs.FS) *TestDB {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Coffee.Database[config.DefaultDBName] = map[string]interface{}{
		"type":     sqlite.ProviderType,
		"database": filepath.Join(t.TempDir(), "coffee_test.db"),
		"pool":     map[string]interface{}{"max_open_conns": 4, "max_idle_conns": 4},
	}
	resolver := gormadapter.NewGormDBConnectionResolverFromProviders(cfg, sqlite.NewProvider(cfg))
	t.Cleanup(func() { _ = resolver.CloseAll() })

	conn, err := resolver.ResolveDBConnection(context.Background(), config.DefaultDBName)
	require.NoError(t, err)
	require.NoError(t, migration.ApplyAll(context.Background(), conn, filesystem.ProvideFrameworkMigrationsFS(), appMigrations))

	return &TestDB{
		Config:    cfg,
		Resolver:  resolver,
		Conn:      conn,
		TxManager: gormadapter.NewGormTransactionManager(resolver, config.DefaultDBName),
	}
}

// NewSQLMockConnection returns a GORM connection whose SQL is answered by go-sqlmock.
// The MySQL dialector is used because it needs no server handshake when the version lookup is skipped.
func NewSQLMockConnection(t *testing.T) (dbadapter.DBConnection, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: gormLogger.Discard})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return gormadapter.NewGormDBAdapter(gormDB, dbconfig.DatabaseConfig{Type: "mysql"}, config.DefaultDBName), mock
}
