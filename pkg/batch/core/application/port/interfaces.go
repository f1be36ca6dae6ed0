// Package port declares the contracts between the batch engine and its components:
// jobs, steps, item readers/processors/writers, tasklets and listeners.
package port

import (
	"context"
	"errors"

	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	tx "github.com/tigerroll/coffeebatch/pkg/batch/core/tx"
)

// ErrNoMoreItems may be returned by a reader instead of io.EOF to signal the end of input.
var ErrNoMoreItems = errors.New("no more items to read")

// Job is a named, ordered sequence of steps.
type Job interface {
	// Run executes the steps of the job in order against jobExecution, marks it COMPLETED or
	// FAILED, and returns the first step failure. Persisting the execution is left to the caller.
	Run(ctx context.Context, jobExecution *model.JobExecution) error
	JobName() string
	Steps() []Step
}

// Step is one stage of a job.
type Step interface {
	// Execute runs the step, updating stepExecution with status and counts.
	Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error
	StepName() string
}

// ItemReader produces a finite, forward-only sequence of items.
// Read returns io.EOF (or ErrNoMoreItems) once the sequence is exhausted.
type ItemReader[O any] interface {
	Open(ctx context.Context) error
	Read(ctx context.Context) (O, error)
	Close(ctx context.Context) error
}

// ItemProcessor maps one item. Returning a nil item drops it from the chunk.
type ItemProcessor[I, O any] interface {
	Process(ctx context.Context, item I) (O, error)
}

// ItemWriter persists one chunk inside the transaction t.
type ItemWriter[I any] interface {
	Open(ctx context.Context) error
	Write(ctx context.Context, t tx.Tx, items []I) error
	Close(ctx context.Context) error
}

// Tasklet is a single unit of work executed once by a tasklet step.
type Tasklet interface {
	Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error)
	Close(ctx context.Context) error
}

// JobExecutionListener observes the start and end of job executions.
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, jobExecution *model.JobExecution)
	AfterJob(ctx context.Context, jobExecution *model.JobExecution)
}

// StepExecutionListener observes the start and end of step executions.
type StepExecutionListener interface {
	BeforeStep(ctx context.Context, stepExecution *model.StepExecution)
	AfterStep(ctx context.Context, stepExecution *model.StepExecution) model.ExitStatus
}

// ChunkListener observes chunk boundaries.
type ChunkListener interface {
	BeforeChunk(ctx context.Context, stepExecution *model.StepExecution)
	AfterChunk(ctx context.Context, stepExecution *model.StepExecution)
	AfterChunkError(ctx context.Context, stepExecution *model.StepExecution, err error)
}

// JobParametersIncrementer derives the parameters of the next run.
type JobParametersIncrementer interface {
	GetNext(params model.JobParameters) model.JobParameters
}

type stepExecutionKey struct{}

// WithStepExecution returns a context carrying se.
func WithStepExecution(ctx context.Context, se *model.StepExecution) context.Context {
	return context.WithValue(ctx, stepExecutionKey{}, se)
}

// GetStepExecutionFromContext returns the step execution stored by WithStepExecution, or nil.
func GetStepExecutionFromContext(ctx context.Context) *model.StepExecution {
	se, _ := ctx.Value(stepExecutionKey{}).(*model.StepExecution)
	return se
}
