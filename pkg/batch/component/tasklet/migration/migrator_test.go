package migration_test

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database"
	gormadapter "github.com/tigerroll/coffeebatch/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/coffeebatch/pkg/batch/component/tasklet/migration"
	"github.com/tigerroll/coffeebatch/pkg/batch/component/tasklet/migration/filesystem"
	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
)

func openSQLite(t *testing.T) database.DBConnection {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Coffee.Database[config.DefaultDBName] = map[string]interface{}{
		"type":     "sqlite",
		"database": filepath.Join(t.TempDir(), "migrate.db"),
	}
	resolver := gormadapter.NewGormDBConnectionResolverFromProviders(cfg, sqlite.NewProvider(cfg))
	t.Cleanup(func() { _ = resolver.CloseAll() })
	conn, err := resolver.ResolveDBConnection(context.Background(), config.DefaultDBName)
	require.NoError(t, err)
	return conn
}

func TestApplyAll_IsRepeatable(t *testing.T) {
	conn := openSQLite(t)
	ctx := context.Background()
	appFS := fstest.MapFS{
		"sqlite/000001_create_bean.up.sql":   {Data: []byte("CREATE TABLE bean (id INTEGER PRIMARY KEY, name TEXT);")},
		"sqlite/000001_create_bean.down.sql": {Data: []byte("DROP TABLE bean;")},
	}

	require.NoError(t, migration.ApplyAll(ctx, conn, filesystem.ProvideFrameworkMigrationsFS(), appFS))
	require.NoError(t, migration.ApplyAll(ctx, conn, filesystem.ProvideFrameworkMigrationsFS(), appFS), "no pending migrations is not an error")

	for _, table := range []string{"batch_job_instance", "batch_job_execution", "batch_step_execution", "batch_job_claim", "bean"} {
		_, err := conn.ExecuteRaw(ctx, "SELECT COUNT(*) FROM "+table)
		assert.NoError(t, err, table)
	}
}

func TestUp_MissingDirectoryFails(t *testing.T) {
	conn := openSQLite(t)
	err := migration.NewMigrator(conn).Up(context.Background(), fstest.MapFS{}, "sqlite", migration.FixedAppMigrationsTable)
	assert.Error(t, err)
}
