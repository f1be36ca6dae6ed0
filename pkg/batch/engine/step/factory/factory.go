// Package factory builds steps from the collaborators an application shares: the job repository,
// the transaction manager, the chunk size, metrics, tracing and listeners.
//
// Readers, processors, writers and tasklets keep per-run state, so the factory takes constructors
// rather than instances and builds fresh components for every execution. Concurrent launches of
// the same job never share a reader.
package factory

import (
	"context"
	"fmt"

	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/repository"
	tx "github.com/tigerroll/coffeebatch/pkg/batch/core/tx"
	"github.com/tigerroll/coffeebatch/pkg/batch/engine/step"
	itemstep "github.com/tigerroll/coffeebatch/pkg/batch/engine/step/item"
	taskletstep "github.com/tigerroll/coffeebatch/pkg/batch/engine/step/tasklet"
	exception "github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// StepFactory holds what every step it creates shares.
type StepFactory struct {
	jobRepository repository.JobRepository
	txManager     tx.TransactionManager
	chunkSize     int
	options       []step.Option
}

// NewStepFactory creates a factory. A chunkSize below 1 means itemstep.DefaultChunkSize.
func NewStepFactory(jobRepository repository.JobRepository, txManager tx.TransactionManager, chunkSize int, opts ...step.Option) *StepFactory {
	return &StepFactory{
		jobRepository: jobRepository,
		txManager:     txManager,
		chunkSize:     chunkSize,
		options:       opts,
	}
}

// ChunkSize returns the chunk size given to chunk steps.
func (f *StepFactory) ChunkSize() int {
	if f.chunkSize < 1 {
		return itemstep.DefaultChunkSize
	}
	return f.chunkSize
}

// ChunkComponents are the reader, processor and writer of one chunk step execution.
type ChunkComponents[I, O any] struct {
	Reader    port.ItemReader[I]
	Processor port.ItemProcessor[I, O]
	Writer    port.ItemWriter[O]
}

// CreateChunkStep returns a chunk-oriented step whose components are built by build at every execution.
// It is a function rather than a method because methods cannot carry type parameters.
func CreateChunkStep[I, O any](f *StepFactory, name string, build func() (ChunkComponents[I, O], error)) port.Step {
	return &perRunStep{
		name:          name,
		jobRepository: f.jobRepository,
		build: func() (port.Step, error) {
			c, err := build()
			if err != nil {
				return nil, err
			}
			return itemstep.NewChunkStep(name, c.Reader, c.Processor, c.Writer, f.ChunkSize(), f.jobRepository, f.txManager, f.options...), nil
		},
	}
}

// CreateTaskletStep returns a tasklet step running a tasklet built by newTasklet at every execution.
func (f *StepFactory) CreateTaskletStep(name string, newTasklet func() port.Tasklet) port.Step {
	return &perRunStep{
		name:          name,
		jobRepository: f.jobRepository,
		build: func() (port.Step, error) {
			return taskletstep.NewTaskletStep(name, newTasklet(), f.jobRepository, f.options...), nil
		},
	}
}

// perRunStep builds the concrete step when it is executed.
type perRunStep struct {
	name          string
	jobRepository repository.JobRepository
	build         func() (port.Step, error)
}

func (s *perRunStep) StepName() string {
	return s.name
}

func (s *perRunStep) Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error {
	delegate, err := s.build()
	if err != nil {
		err = exception.NewBatchError(s.name, fmt.Sprintf("failed to build step '%s'", s.name), err, false, false)
		stepExecution.MarkAsFailed(err)
		if updateErr := s.jobRepository.UpdateStepExecution(context.WithoutCancel(ctx), stepExecution); updateErr != nil {
			logger.Errorf("Step '%s': Failed to record build failure: %v", s.name, updateErr)
		}
		return err
	}
	return delegate.Execute(ctx, jobExecution, stepExecution)
}

var _ port.Step = (*perRunStep)(nil)
