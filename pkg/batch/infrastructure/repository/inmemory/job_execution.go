package inmemory

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/coffeebatch/pkg/batch/core/domain/repository"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// ClaimJobExecution performs the lookup and the creation of the STARTED execution under one write lock.
func (r *InMemoryJobRepository) ClaimJobExecution(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, err := params.Hash()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := instanceKey(jobName, hash)
	instanceID, ok := r.instanceByKey[key]
	if ok {
		ids := r.executionsByJI[instanceID]
		if len(ids) > 0 {
			latest := r.jobExecutions[ids[len(ids)-1]]
			if latest.Status.BlocksRelaunch() {
				return nil, exception.NewDuplicateRunError(jobName, latest.Status.String())
			}
		}
	} else {
		ji, err := model.NewJobInstance(jobName, params.Copy())
		if err != nil {
			return nil, err
		}
		instanceID = ji.ID
		r.jobInstances[ji.ID] = ji
		r.instanceByKey[key] = ji.ID
	}

	je := model.NewJobExecution(instanceID, jobName, params.Copy())
	je.MarkAsStarted()
	r.jobExecutions[je.ID] = cloneJobExecution(je)
	r.executionsByJI[instanceID] = append(r.executionsByJI[instanceID], je.ID)

	logger.Debugf("InMemoryJobRepository: claimed JobExecution %s for job '%s'.", je.ID, jobName)
	return je, nil
}

// UpdateJobExecution stores the state of an existing execution.
func (r *InMemoryJobRepository) UpdateJobExecution(ctx context.Context, je *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobExecutions[je.ID]; !ok {
		return fmt.Errorf("JobExecution %s: %w", je.ID, repository.ErrJobExecutionNotFound)
	}
	je.LastUpdated = time.Now()
	r.jobExecutions[je.ID] = cloneJobExecution(je)
	return nil
}

// FindJobExecutionByID returns a copy of the execution with its step executions.
func (r *InMemoryJobRepository) FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.jobExecutions[executionID]
	if !ok {
		return nil, repository.ErrJobExecutionNotFound
	}
	je := cloneJobExecution(stored)
	for _, se := range r.stepExecutions[executionID] {
		cp := cloneStepExecution(se)
		cp.JobExecution = je
		je.StepExecutions = append(je.StepExecutions, cp)
	}
	return je, nil
}

// FindJobExecutionsByJobInstance returns copies of the executions of instance, oldest first.
func (r *InMemoryJobRepository) FindJobExecutionsByJobInstance(ctx context.Context, instance *model.JobInstance) ([]*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.executionsByJI[instance.ID]
	out := make([]*model.JobExecution, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneJobExecution(r.jobExecutions[id]))
	}
	return out, nil
}
