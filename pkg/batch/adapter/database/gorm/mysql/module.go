package mysql

import (
	"go.uber.org/fx"

	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database"
)

// Module exports the MySQL DBProvider into the db_providers group.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewProvider,
			fx.ResultTags(`group:"`+database.DBProviderGroup+`"`),
		),
	),
)
