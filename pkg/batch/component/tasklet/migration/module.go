package migration

import (
	"context"
	"io/fs"

	"go.uber.org/fx"

	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database"
	"github.com/tigerroll/coffeebatch/pkg/batch/component/tasklet/migration/filesystem"
)

// AppMigrationsFSTag is the fx tag under which an application supplies its own migrations.
const AppMigrationsFSTag = `name:"appMigrationsFS"`

// Params are the dependencies of RegisterMigrationHook.
type Params struct {
	fx.In
	Lifecycle   fx.Lifecycle
	Conn        database.DBConnection
	FrameworkFS fs.FS `name:"frameworkMigrationsFS"`
	AppFS       fs.FS `name:"appMigrationsFS" optional:"true"`
}

// ApplyAll runs the framework migrations and then, when appFS is not nil, the application
// migrations. Both are read from the directory named after the connection's database type.
func ApplyAll(ctx context.Context, conn database.DBConnection, frameworkFS, appFS fs.FS) error {
	m := NewMigrator(conn)
	if err := m.Up(ctx, frameworkFS, conn.Type(), FixedFrameworkMigrationsTable); err != nil {
		return err
	}
	if appFS == nil {
		return nil
	}
	return m.Up(ctx, appFS, conn.Type(), FixedAppMigrationsTable)
}

// RegisterMigrationHook applies all migrations when the application starts.
func RegisterMigrationHook(p Params) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ApplyAll(ctx, p.Conn, p.FrameworkFS, p.AppFS)
		},
	})
}

// Module applies the embedded migrations at startup.
var Module = fx.Options(
	filesystem.Module,
	fx.Invoke(RegisterMigrationHook),
)
