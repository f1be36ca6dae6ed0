package job

import (
	"fmt"
	"sort"

	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	exception "github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
)

// Registry maps job names to jobs. It is built once and never changes afterwards, so it is
// safe for concurrent use without locking.
type Registry struct {
	jobs map[string]port.Job
}

// NewRegistry builds a registry from jobs. Duplicate or empty names are rejected.
func NewRegistry(jobs ...port.Job) (*Registry, error) {
	m := make(map[string]port.Job, len(jobs))
	for _, j := range jobs {
		name := j.JobName()
		if name == "" {
			return nil, fmt.Errorf("job registry: job without a name")
		}
		if _, dup := m[name]; dup {
			return nil, fmt.Errorf("job registry: job '%s' registered twice", name)
		}
		m[name] = j
	}
	return &Registry{jobs: m}, nil
}

// Get returns the job registered under name, or an UnknownJobError. There is no fallback job.
func (r *Registry) Get(name string) (port.Job, error) {
	j, ok := r.jobs[name]
	if !ok {
		return nil, exception.NewUnknownJobError(name)
	}
	return j, nil
}

// Names returns the registered job names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
