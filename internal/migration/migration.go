// Package migration embeds the coffee table migrations, one directory per database type.
package migration

import (
	"embed"
	"io/fs"

	"go.uber.org/fx"

	"github.com/tigerroll/coffeebatch/pkg/batch/component/tasklet/migration"
)

//go:embed resource
var rawCoffeeMigrationsFS embed.FS

// CoffeeMigrationsFS returns the migrations rooted at the database type directories.
func CoffeeMigrationsFS() fs.FS {
	sub, err := fs.Sub(rawCoffeeMigrationsFS, "resource")
	if err != nil {
		// The embedded tree is fixed at build time.
		panic(err)
	}
	return sub
}

// Module supplies the coffee migrations as the application migrations.
var Module = fx.Options(
	fx.Provide(fx.Annotate(CoffeeMigrationsFS, fx.ResultTags(migration.AppMigrationsFSTag))),
)
