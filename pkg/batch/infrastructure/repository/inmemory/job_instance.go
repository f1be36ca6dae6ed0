package inmemory

import (
	"context"

	"github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/coffeebatch/pkg/batch/core/domain/repository"
)

// FindJobInstanceByJobNameAndParameters finds the instance for (jobName, params).
func (r *InMemoryJobRepository) FindJobInstanceByJobNameAndParameters(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error) {
	hash, err := params.Hash()
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.instanceByKey[instanceKey(jobName, hash)]
	if !ok {
		return nil, repository.ErrJobInstanceNotFound
	}
	ji := *r.jobInstances[id]
	return &ji, nil
}
