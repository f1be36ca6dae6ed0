// Package job assembles the coffee jobs from their steps and registers them by name.
package job

import (
	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database"
	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/storage"
	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
	repository "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/repository"
	"github.com/tigerroll/coffeebatch/pkg/batch/core/job"
	"github.com/tigerroll/coffeebatch/pkg/batch/engine/step/factory"
	"github.com/tigerroll/coffeebatch/pkg/batch/engine/step/item"

	"github.com/tigerroll/coffeebatch/internal/domain/entity"
	"github.com/tigerroll/coffeebatch/internal/listener"
	"github.com/tigerroll/coffeebatch/internal/step/processor"
	"github.com/tigerroll/coffeebatch/internal/step/reader"
	"github.com/tigerroll/coffeebatch/internal/step/tasklet"
	"github.com/tigerroll/coffeebatch/internal/step/writer"
)

// Job names, as accepted by the CLI and the HTTP trigger.
const (
	ImportCoffeeJobName    = "importCoffeeJob"
	MultiStepCoffeeJobName = "multiStepCoffeeJob"
	DeleteTeaJobName       = "deleteTeaJob"
	ExportCoffeeJobName    = "exportCoffeeJob"
)

// Step names.
const (
	ImportDataCoffeeStepName     = "importDataCoffeeStep"
	ProcessItalianCoffeeStepName = "processItalianCoffeeStep"
	DeleteTeaStepName            = "deleteTeaStep"
	ExportCoffeeStepName         = "exportCoffeeStep"
)

const (
	// ExportStorageRef is the storage connection exportCoffeeJob uploads to.
	ExportStorageRef = "exports"
	// ExportPrefix is the object prefix of the exported Parquet files.
	ExportPrefix = "coffee"
)

// CoffeeJobs holds what the coffee jobs are built from.
type CoffeeJobs struct {
	cfg                *config.Config
	jobRepository      repository.JobRepository
	dbResolver         database.DBConnectionResolver
	storageResolver    storage.StorageConnectionResolver
	steps              *factory.StepFactory
	completionListener *listener.JobCompletionNotificationListener
	jobOptions         []job.Option
}

// NewCoffeeJobs creates the builder. jobOptions are applied to every job.
func NewCoffeeJobs(
	cfg *config.Config,
	jobRepository repository.JobRepository,
	dbResolver database.DBConnectionResolver,
	storageResolver storage.StorageConnectionResolver,
	steps *factory.StepFactory,
	jobOptions ...job.Option,
) *CoffeeJobs {
	return &CoffeeJobs{
		cfg:                cfg,
		jobRepository:      jobRepository,
		dbResolver:         dbResolver,
		storageResolver:    storageResolver,
		steps:              steps,
		completionListener: listener.NewJobCompletionNotificationListener(dbResolver),
		jobOptions:         jobOptions,
	}
}

// ImportDataCoffeeStep reads the coffee CSV, normalizes every record and inserts it.
func (c *CoffeeJobs) ImportDataCoffeeStep() port.Step {
	return factory.CreateChunkStep(c.steps, ImportDataCoffeeStepName,
		func() (factory.ChunkComponents[*entity.CoffeeRecord, *entity.Coffee], error) {
			return factory.ChunkComponents[*entity.CoffeeRecord, *entity.Coffee]{
				Reader:    reader.NewCoffeeCSVReader(reader.CoffeeSource(c.cfg)),
				Processor: processor.NewCoffeeItemProcessor(),
				Writer:    writer.NewCoffeeInsertWriter(),
			}, nil
		})
}

// ProcessItalianCoffeeStep promotes the characteristics of every Italian coffee.
func (c *CoffeeJobs) ProcessItalianCoffeeStep() port.Step {
	return factory.CreateChunkStep(c.steps, ProcessItalianCoffeeStepName,
		func() (factory.ChunkComponents[*entity.Coffee, *entity.Coffee], error) {
			return factory.ChunkComponents[*entity.Coffee, *entity.Coffee]{
				Reader:    reader.NewItalianCoffeeReader(c.dbResolver, c.steps.ChunkSize()),
				Processor: processor.NewCoffeeItemPremiumProcessor(),
				Writer:    writer.NewPremiumCoffeeWriter(),
			}, nil
		})
}

// DeleteTeaStep removes the rows whose characteristics are 'tea'.
func (c *CoffeeJobs) DeleteTeaStep() port.Step {
	return c.steps.CreateTaskletStep(DeleteTeaStepName, func() port.Tasklet {
		return tasklet.NewDeleteTeaTasklet(c.dbResolver)
	})
}

// ExportCoffeeStep writes every stored coffee to Parquet files partitioned by origin.
func (c *CoffeeJobs) ExportCoffeeStep() port.Step {
	return factory.CreateChunkStep(c.steps, ExportCoffeeStepName,
		func() (factory.ChunkComponents[*entity.Coffee, *entity.Coffee], error) {
			w, err := writer.NewCoffeeParquetWriter(c.storageResolver, ExportStorageRef, ExportPrefix)
			if err != nil {
				return factory.ChunkComponents[*entity.Coffee, *entity.Coffee]{}, err
			}
			return factory.ChunkComponents[*entity.Coffee, *entity.Coffee]{
				Reader:    reader.NewAllCoffeeReader(c.dbResolver, c.steps.ChunkSize()),
				Processor: item.PassThroughProcessor[*entity.Coffee]{},
				Writer:    w,
			}, nil
		})
}

func (c *CoffeeJobs) newJob(name string, steps []port.Step, extra ...job.Option) *job.SimpleJob {
	opts := append(append([]job.Option{}, c.jobOptions...), extra...)
	return job.NewSimpleJob(name, c.jobRepository, steps, opts...)
}

// ImportCoffeeJob is importDataCoffeeStep followed by a listing of the coffee table.
func (c *CoffeeJobs) ImportCoffeeJob() *job.SimpleJob {
	return c.newJob(ImportCoffeeJobName, []port.Step{c.ImportDataCoffeeStep()},
		job.WithJobListeners(c.completionListener))
}

// MultiStepCoffeeJob promotes the Italian coffees, then deletes the tea rows.
func (c *CoffeeJobs) MultiStepCoffeeJob() *job.SimpleJob {
	return c.newJob(MultiStepCoffeeJobName, []port.Step{c.ProcessItalianCoffeeStep(), c.DeleteTeaStep()})
}

// DeleteTeaJob only deletes the tea rows.
func (c *CoffeeJobs) DeleteTeaJob() *job.SimpleJob {
	return c.newJob(DeleteTeaJobName, []port.Step{c.DeleteTeaStep()})
}

// ExportCoffeeJob exports the coffee table to object storage.
func (c *CoffeeJobs) ExportCoffeeJob() *job.SimpleJob {
	return c.newJob(ExportCoffeeJobName, []port.Step{c.ExportCoffeeStep()})
}

// Registry registers every coffee job.
func (c *CoffeeJobs) Registry() (*job.Registry, error) {
	return job.NewRegistry(
		c.ImportCoffeeJob(),
		c.MultiStepCoffeeJob(),
		c.DeleteTeaJob(),
		c.ExportCoffeeJob(),
	)
}
