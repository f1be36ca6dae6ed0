package usecase

import (
	"context"
	"fmt"

	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/repository"
	"github.com/tigerroll/coffeebatch/pkg/batch/core/job"
	exception "github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// SimpleJobExplorer is a simple implementation of the JobExplorer interface.
// It queries batch metadata using a JobRepository.
type SimpleJobExplorer struct {
	jobRepository repository.JobRepository
	registry      *job.Registry
}

// Verify that SimpleJobExplorer implements the JobExplorer interface.
var _ JobExplorer = (*SimpleJobExplorer)(nil)

// NewSimpleJobExplorer creates a new instance of SimpleJobExplorer.
func NewSimpleJobExplorer(jobRepository repository.JobRepository, registry *job.Registry) *SimpleJobExplorer {
	return &SimpleJobExplorer{
		jobRepository: jobRepository,
		registry:      registry,
	}
}

// GetJobExecution retrieves a JobExecution by its ID. A missing execution keeps
// repository.ErrJobExecutionNotFound in the error chain.
func (e *SimpleJobExplorer) GetJobExecution(ctx context.Context, executionID string) (*model.JobExecution, error) {
	jobExecution, err := e.jobRepository.FindJobExecutionByID(ctx, executionID)
	if err != nil {
		return nil, exception.NewBatchError("job_explorer", fmt.Sprintf("Failed to retrieve JobExecution (ID: %s)", executionID), err, false, false)
	}
	logger.Debugf("Retrieved JobExecution (ID: %s) from JobRepository.", executionID)
	return jobExecution, nil
}

// GetJobNames retrieves all registered job names.
func (e *SimpleJobExplorer) GetJobNames(ctx context.Context) ([]string, error) {
	return e.registry.Names(), nil
}
