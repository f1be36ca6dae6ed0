// Package repository selects the JobRepository implementation named by the configuration.
package repository

import (
	"fmt"

	"go.uber.org/fx"

	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
	coreRepo "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/repository"
	"github.com/tigerroll/coffeebatch/pkg/batch/infrastructure/repository/inmemory"
	sqlRepo "github.com/tigerroll/coffeebatch/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// JobRepositoryParams are the candidates NewJobRepository chooses from.
type JobRepositoryParams struct {
	fx.In
	Cfg      *config.Config
	SQL      *sqlRepo.SQLJobRepository
	InMemory *inmemory.InMemoryJobRepository
}

// NewJobRepository returns the implementation selected by infrastructure.job_repository.
func NewJobRepository(p JobRepositoryParams) (coreRepo.JobRepository, error) {
	switch kind := p.Cfg.Coffee.Infrastructure.JobRepository; kind {
	case config.JobRepositorySQL, "":
		logger.Infof("Using SQL JobRepository on connection '%s'.", p.Cfg.Coffee.Infrastructure.JobRepositoryDBRef)
		return p.SQL, nil
	case config.JobRepositoryInMemory:
		logger.Infof("Using in-memory JobRepository; execution history is lost on exit.")
		return p.InMemory, nil
	default:
		return nil, fmt.Errorf("unsupported job repository type: %s", kind)
	}
}

// Module provides the configured JobRepository.
var Module = fx.Options(
	sqlRepo.Module,
	fx.Provide(inmemory.NewInMemoryJobRepository),
	fx.Provide(NewJobRepository),
)
