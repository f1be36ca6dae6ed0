package sql

import (
	"go.uber.org/fx"

	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database"
	gormadapter "github.com/tigerroll/coffeebatch/pkg/batch/adapter/database/gorm"
	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
)

// NewSQLJobRepositoryFromConfig builds the repository on the connection named by
// infrastructure.job_repository_db_ref, with its own transaction manager.
func NewSQLJobRepositoryFromConfig(cfg *config.Config, resolver database.DBConnectionResolver) *SQLJobRepository {
	dbName := cfg.Coffee.Infrastructure.JobRepositoryDBRef
	if dbName == "" {
		dbName = config.DefaultDBName
	}
	return NewSQLJobRepository(resolver, gormadapter.NewGormTransactionManager(resolver, dbName), dbName)
}

// Module provides the SQL JobRepository.
var Module = fx.Options(
	fx.Provide(NewSQLJobRepositoryFromConfig),
)
