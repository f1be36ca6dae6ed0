package inmemory

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/coffeebatch/pkg/batch/core/domain/repository"
)

// SaveStepExecution stores a new step execution under its job execution.
func (r *InMemoryJobRepository) SaveStepExecution(ctx context.Context, se *model.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobExecutions[se.JobExecutionID]; !ok {
		return fmt.Errorf("StepExecution %s: parent %s: %w", se.ID, se.JobExecutionID, repository.ErrJobExecutionNotFound)
	}
	for _, existing := range r.stepExecutions[se.JobExecutionID] {
		if existing.ID == se.ID {
			return fmt.Errorf("StepExecution with ID %s already exists", se.ID)
		}
	}
	r.stepExecutions[se.JobExecutionID] = append(r.stepExecutions[se.JobExecutionID], cloneStepExecution(se))
	return nil
}

// UpdateStepExecution replaces a stored step execution.
func (r *InMemoryJobRepository) UpdateStepExecution(ctx context.Context, se *model.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.stepExecutions[se.JobExecutionID]
	for i, existing := range list {
		if existing.ID == se.ID {
			se.LastUpdated = time.Now()
			list[i] = cloneStepExecution(se)
			return nil
		}
	}
	return fmt.Errorf("StepExecution with ID %s not found for update", se.ID)
}
