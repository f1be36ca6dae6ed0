// Package incrementer derives the parameters of the next run from the current ones.
package incrementer

import (
	"fmt"
	"sync/atomic"
	"time"

	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// DefaultRunIDKey is the parameter set on every launch.
const DefaultRunIDKey = "run.id"

// RunIDIncrementer sets a run id taken from the wall clock in Unix milliseconds.
// Ids handed out by one incrementer are strictly increasing, even for launches within the same
// millisecond, so every launch gets a distinct identity.
type RunIDIncrementer struct {
	name string
	last atomic.Int64
	now  func() time.Time
}

// NewRunIDIncrementer creates an incrementer writing to parameter name (DefaultRunIDKey when empty).
func NewRunIDIncrementer(name string) *RunIDIncrementer {
	if name == "" {
		name = DefaultRunIDKey
	}
	return &RunIDIncrementer{name: name, now: time.Now}
}

// GetNext returns a copy of params with the run id replaced.
func (i *RunIDIncrementer) GetNext(params model.JobParameters) model.JobParameters {
	next := params.Copy()
	id := i.nextID()
	next.Put(i.name, id)
	logger.Debugf("JobParametersIncrementer '%s': Setting '%s' to %d.", i.name, i.name, id)
	return next
}

func (i *RunIDIncrementer) nextID() int64 {
	for {
		last := i.last.Load()
		candidate := i.now().UnixMilli()
		if candidate <= last {
			candidate = last + 1
		}
		if i.last.CompareAndSwap(last, candidate) {
			return candidate
		}
	}
}

// String returns the string representation of RunIDIncrementer.
func (i *RunIDIncrementer) String() string {
	return fmt.Sprintf("RunIDIncrementer[name=%s]", i.name)
}

var _ port.JobParametersIncrementer = (*RunIDIncrementer)(nil)
