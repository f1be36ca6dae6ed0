package filesystem

import (
	"go.uber.org/fx"
)

// FrameworkMigrationsFSTag is the fx tag of the embedded batch metadata migrations.
const FrameworkMigrationsFSTag = `name:"frameworkMigrationsFS"`

// Module provides the embedded framework migrations.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		ProvideFrameworkMigrationsFS,
		fx.ResultTags(FrameworkMigrationsFSTag),
	)),
)
