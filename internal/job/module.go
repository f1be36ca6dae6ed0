package job

import (
	"go.uber.org/fx"

	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database"
	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/storage"
	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
	repository "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/repository"
	"github.com/tigerroll/coffeebatch/pkg/batch/core/job"
	metrics "github.com/tigerroll/coffeebatch/pkg/batch/core/metrics"
	"github.com/tigerroll/coffeebatch/pkg/batch/engine/step/factory"
)

// CoffeeJobsParams are the fx dependencies of the coffee jobs.
type CoffeeJobsParams struct {
	fx.In
	Cfg             *config.Config
	JobRepository   repository.JobRepository
	DBResolver      database.DBConnectionResolver
	StorageResolver storage.StorageConnectionResolver
	Steps           *factory.StepFactory
	MetricRecorder  metrics.MetricRecorder      `optional:"true"`
	Tracer          metrics.Tracer              `optional:"true"`
	JobListeners    []port.JobExecutionListener `group:"job_listeners"`
}

// NewCoffeeJobsFromParams builds the jobs with the metrics, tracing and listeners found in the container.
func NewCoffeeJobsFromParams(p CoffeeJobsParams) *CoffeeJobs {
	return NewCoffeeJobs(p.Cfg, p.JobRepository, p.DBResolver, p.StorageResolver, p.Steps,
		job.WithMetricRecorder(p.MetricRecorder),
		job.WithTracer(p.Tracer),
		job.WithJobListeners(p.JobListeners...),
	)
}

func newRegistry(jobs *CoffeeJobs) (*job.Registry, error) {
	return jobs.Registry()
}

// Module provides the StepFactory, the coffee jobs and the *job.Registry holding them.
var Module = fx.Options(
	factory.Module,
	fx.Provide(NewCoffeeJobsFromParams),
	fx.Provide(newRegistry),
)
