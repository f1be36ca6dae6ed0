// Package inmemory provides a JobRepository backed by maps, for tests and single-process runs
// that do not need execution history to survive a restart.
package inmemory

import (
	"sync"

	"github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/coffeebatch/pkg/batch/core/domain/repository"
)

// InMemoryJobRepository keeps all metadata in memory. Every method is safe for concurrent use;
// stored values are copies, so callers never share state with the repository.
type InMemoryJobRepository struct {
	mu             sync.RWMutex
	jobInstances   map[string]*model.JobInstance     // by ID
	instanceByKey  map[string]string                 // jobName + "|" + params hash → instance ID
	jobExecutions  map[string]*model.JobExecution    // by ID
	executionsByJI map[string][]string               // instance ID → execution IDs, oldest first
	stepExecutions map[string][]*model.StepExecution // job execution ID → step executions
}

// NewInMemoryJobRepository creates an empty repository.
func NewInMemoryJobRepository() *InMemoryJobRepository {
	return &InMemoryJobRepository{
		jobInstances:   make(map[string]*model.JobInstance),
		instanceByKey:  make(map[string]string),
		jobExecutions:  make(map[string]*model.JobExecution),
		executionsByJI: make(map[string][]string),
		stepExecutions: make(map[string][]*model.StepExecution),
	}
}

// Close is a no-op.
func (r *InMemoryJobRepository) Close() error {
	return nil
}

func instanceKey(jobName, hash string) string {
	return jobName + "|" + hash
}

func cloneJobExecution(je *model.JobExecution) *model.JobExecution {
	cp := *je
	cp.Failures = append(model.FailureList{}, je.Failures...)
	cp.Parameters = je.Parameters.Copy()
	cp.StepExecutions = nil
	if je.EndTime != nil {
		end := *je.EndTime
		cp.EndTime = &end
	}
	return &cp
}

func cloneStepExecution(se *model.StepExecution) *model.StepExecution {
	cp := *se
	cp.Failures = append(model.FailureList{}, se.Failures...)
	cp.JobExecution = nil
	if se.EndTime != nil {
		end := *se.EndTime
		cp.EndTime = &end
	}
	return &cp
}

var _ repository.JobRepository = (*InMemoryJobRepository)(nil)
