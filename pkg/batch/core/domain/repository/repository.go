// Package repository declares the persistence contract for batch execution metadata.
package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
)

var (
	// ErrJobInstanceNotFound is returned when no JobInstance matches.
	ErrJobInstanceNotFound = errors.New("job instance not found")
	// ErrJobExecutionNotFound is returned when no JobExecution matches.
	ErrJobExecutionNotFound = errors.New("job execution not found")
)

func init() {
	exception.RegisterErrorType("ErrJobInstanceNotFound", ErrJobInstanceNotFound)
	exception.RegisterErrorType("ErrJobExecutionNotFound", ErrJobExecutionNotFound)
}

// JobInstance reads job instances.
type JobInstance interface {
	// FindJobInstanceByJobNameAndParameters returns the instance for (jobName, params hash),
	// or ErrJobInstanceNotFound.
	FindJobInstanceByJobNameAndParameters(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error)
}

// JobExecution persists job executions.
type JobExecution interface {
	// ClaimJobExecution is the single atomic launch guard.
	// It finds or creates the JobInstance for (jobName, params). If the latest execution of that instance
	// is running or completed, it fails with exception.ErrDuplicateRun. Otherwise it stores and returns a
	// new execution already in STARTED status. No two concurrent callers can both succeed for the same identity.
	ClaimJobExecution(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error)

	// UpdateJobExecution stores the current status, times and failures of jobExecution.
	UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error

	// FindJobExecutionByID returns the execution with its step executions, or ErrJobExecutionNotFound.
	FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error)

	// FindJobExecutionsByJobInstance returns all executions of instance, oldest first.
	FindJobExecutionsByJobInstance(ctx context.Context, instance *model.JobInstance) ([]*model.JobExecution, error)
}

// StepExecution persists step executions.
type StepExecution interface {
	SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error
	UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error
}

// JobRepository is the full metadata store used by the launcher and the step executors.
type JobRepository interface {
	JobInstance
	JobExecution
	StepExecution

	// Close releases resources held by the repository.
	Close() error
}
