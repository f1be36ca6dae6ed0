package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/coffeebatch/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/coffeebatch/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database/gorm/sqlite"
	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
	tx "github.com/tigerroll/coffeebatch/pkg/batch/core/tx"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
)

type bean struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"uniqueIndex"`
}

func (bean) TableName() string { return "bean" }

func newResolver(t *testing.T) (*gormadapter.GormDBConnectionResolver, *gormadapter.GormTransactionManager) {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Coffee.Database[config.DefaultDBName] = map[string]interface{}{
		"type":     "sqlite",
		"database": filepath.Join(t.TempDir(), "adapter.db"),
		"pool":     map[string]interface{}{"max_open_conns": "4"},
	}
	resolver := gormadapter.NewGormDBConnectionResolverFromProviders(cfg, sqlite.NewProvider(cfg))
	t.Cleanup(func() { _ = resolver.CloseAll() })

	conn, err := resolver.ResolveDBConnection(context.Background(), config.DefaultDBName)
	require.NoError(t, err)
	_, err = conn.ExecuteRaw(context.Background(),
		"CREATE TABLE bean (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT UNIQUE)")
	require.NoError(t, err)
	return resolver, gormadapter.NewGormTransactionManager(resolver, config.DefaultDBName)
}

func TestConnectionString(t *testing.T) {
	assert.Equal(t, "file:coffee.db?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate",
		sqlite.ConnectionString(dbconfig.DatabaseConfig{Database: "coffee.db"}))
	assert.Equal(t, ":memory:", sqlite.ConnectionString(dbconfig.DatabaseConfig{Database: ":memory:"}))
	assert.Equal(t, "file:x.db?mode=ro", sqlite.ConnectionString(dbconfig.DatabaseConfig{Database: "file:x.db?mode=ro"}))
}

func TestTransactionManager_CommitAndRollback(t *testing.T) {
	resolver, tm := newResolver(t)
	ctx := context.Background()
	conn, err := resolver.ResolveDBConnection(ctx, config.DefaultDBName)
	require.NoError(t, err)

	committed, err := tm.Begin(ctx)
	require.NoError(t, err)
	b := &bean{Name: "arabica"}
	_, err = committed.ExecuteUpdate(ctx, b, tx.OperationCreate, "", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, b.ID, "generated key is written back")
	require.NoError(t, tm.Commit(committed))

	rolledBack, err := tm.Begin(ctx)
	require.NoError(t, err)
	_, err = rolledBack.ExecuteUpdate(ctx, &bean{Name: "robusta"}, tx.OperationCreate, "", nil)
	require.NoError(t, err)
	require.NoError(t, tm.Rollback(rolledBack))
	require.NoError(t, tm.Rollback(rolledBack), "a second rollback is harmless")

	var beans []bean
	require.NoError(t, conn.ExecuteQueryAdvanced(ctx, &beans, nil, "id", 0))
	require.Len(t, beans, 1)
	assert.Equal(t, "arabica", beans[0].Name)
}

func TestExecuteUpdate_ConstraintViolationIsWriteConflict(t *testing.T) {
	resolver, _ := newResolver(t)
	ctx := context.Background()
	conn, err := resolver.ResolveDBConnection(ctx, config.DefaultDBName)
	require.NoError(t, err)

	_, err = conn.ExecuteUpdate(ctx, &bean{Name: "liberica"}, tx.OperationCreate, "", nil)
	require.NoError(t, err)
	_, err = conn.ExecuteUpdate(ctx, &bean{Name: "liberica"}, tx.OperationCreate, "", nil)
	assert.ErrorIs(t, err, exception.ErrWriteConflict)

	n, err := conn.ExecuteUpsert(ctx, &bean{Name: "liberica"}, "", []string{"name"}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "DO NOTHING on conflict")

	n, err = conn.ExecuteUpdate(ctx, map[string]interface{}{"name": "excelsa"}, tx.OperationUpdate, "bean", map[string]interface{}{"name": "liberica"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	count, err := conn.Count(ctx, &bean{}, map[string]interface{}{"name": "excelsa"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestResolver_ClosedConnectionIsReopened(t *testing.T) {
	resolver, _ := newResolver(t)
	ctx := context.Background()
	conn, err := resolver.ResolveDBConnection(ctx, config.DefaultDBName)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	reopened, err := resolver.ResolveDBConnection(ctx, config.DefaultDBName)
	require.NoError(t, err)
	assert.NoError(t, reopened.RefreshConnection(ctx))
	assert.NotSame(t, conn, reopened)
}

func TestResolver_UnknownConnection(t *testing.T) {
	resolver, _ := newResolver(t)
	_, err := resolver.ResolveDBConnection(context.Background(), "missing")
	assert.Error(t, err)
}

func TestResolver_CanceledCallerKeepsSharedConnection(t *testing.T) {
	resolver, _ := newResolver(t)
	ctx := context.Background()
	conn, err := resolver.ResolveDBConnection(ctx, config.DefaultDBName)
	require.NoError(t, err)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = resolver.ResolveDBConnection(canceled, config.DefaultDBName)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// The pool held by other callers is still open.
	require.NoError(t, conn.RefreshConnection(ctx))
	_, err = conn.ExecuteRaw(ctx, "INSERT INTO bean (name) VALUES (?)", "liberica")
	require.NoError(t, err)

	again, err := resolver.ResolveDBConnection(ctx, config.DefaultDBName)
	require.NoError(t, err)
	assert.Same(t, conn, again)
}
