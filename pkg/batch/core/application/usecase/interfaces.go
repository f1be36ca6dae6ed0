package usecase

import (
	"context"

	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
)

// JobLauncher launches a registered job synchronously.
type JobLauncher interface {
	// Launch resolves jobName, claims the run identity (job name, parameters after incrementing),
	// runs the job and records its final status. The execution is returned whenever the claim
	// succeeded, together with an error when the job failed.
	Launch(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error)
}

// JobExplorer queries batch metadata.
type JobExplorer interface {
	// GetJobExecution retrieves a JobExecution, with its step executions, by ID.
	GetJobExecution(ctx context.Context, executionID string) (*model.JobExecution, error)

	// GetJobNames retrieves all registered job names.
	GetJobNames(ctx context.Context) ([]string, error)
}
