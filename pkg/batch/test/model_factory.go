package test

import (
	"time"

	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
)

// NewTestJobParameters creates JobParameters for testing.
func NewTestJobParameters(params map[string]interface{}) model.JobParameters {
	jp := model.NewJobParameters()
	for k, v := range params {
		jp.Put(k, v)
	}
	return jp
}

// NewRunParameters returns parameters holding only run.id.
func NewRunParameters(runID int64) model.JobParameters {
	return NewTestJobParameters(map[string]interface{}{"run.id": runID})
}

// NewStartedJobExecution creates a STARTED JobExecution, as a successful claim would.
func NewStartedJobExecution(jobName string, params model.JobParameters) *model.JobExecution {
	je := model.NewJobExecution(model.NewID(), jobName, params)
	je.MarkAsStarted()
	return je
}

// NewTimePtr returns a pointer to t.
func NewTimePtr(t time.Time) *time.Time {
	return &t
}
