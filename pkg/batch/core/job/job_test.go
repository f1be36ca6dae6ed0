package job_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/coffeebatch/pkg/batch/core/job"
	"github.com/tigerroll/coffeebatch/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/coffeebatch/pkg/batch/test"
)

type fakeStep struct {
	name string
	err  error
	log  *[]string
}

func (s *fakeStep) StepName() string { return s.name }

func (s *fakeStep) Execute(_ context.Context, _ *model.JobExecution, se *model.StepExecution) error {
	*s.log = append(*s.log, s.name)
	if s.err != nil {
		se.MarkAsFailed(s.err)
		return s.err
	}
	se.MarkAsCompleted()
	return nil
}

type statusCapture struct {
	before, after model.JobStatus
}

func (l *statusCapture) BeforeJob(_ context.Context, je *model.JobExecution) { l.before = je.Status }
func (l *statusCapture) AfterJob(_ context.Context, je *model.JobExecution)  { l.after = je.Status }

func claim(t *testing.T, repo *inmemory.InMemoryJobRepository, name string) *model.JobExecution {
	t.Helper()
	je, err := repo.ClaimJobExecution(context.Background(), name, test.NewRunParameters(1))
	require.NoError(t, err)
	return je
}

func TestSimpleJob_RunsStepsInOrder(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	var ran []string
	listener := &statusCapture{}
	j := job.NewSimpleJob("multiStepCoffeeJob", repo, []port.Step{
		&fakeStep{name: "processItalianCoffeeStep", log: &ran},
		&fakeStep{name: "deleteTeaStep", log: &ran},
	}, job.WithJobListeners(listener))

	je := claim(t, repo, j.JobName())
	require.NoError(t, j.Run(context.Background(), je))

	assert.Equal(t, []string{"processItalianCoffeeStep", "deleteTeaStep"}, ran)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	assert.Equal(t, model.BatchStatusStarted, listener.before)
	assert.Equal(t, model.BatchStatusCompleted, listener.after)
	require.Len(t, je.StepExecutions, 2)

	stored, err := repo.FindJobExecutionByID(context.Background(), je.ID)
	require.NoError(t, err)
	assert.Len(t, stored.StepExecutions, 2, "step executions are saved before they run")
}

func TestSimpleJob_StopsAtFirstFailure(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	var ran []string
	cause := exception.NewBatchError("csv_reader", "bad row", exception.ErrMalformedRecord, false, false)
	listener := &statusCapture{}
	j := job.NewSimpleJob("multiStepCoffeeJob", repo, []port.Step{
		&fakeStep{name: "first", err: cause, log: &ran},
		&fakeStep{name: "second", log: &ran},
	}, job.WithJobListeners(listener))

	je := claim(t, repo, j.JobName())
	err := j.Run(context.Background(), je)

	assert.Same(t, cause, err)
	assert.Equal(t, []string{"first"}, ran)
	assert.Equal(t, model.BatchStatusFailed, je.Status)
	assert.Equal(t, model.ExitStatusFailed, je.ExitStatus)
	assert.Equal(t, model.BatchStatusFailed, listener.after)
	assert.NotNil(t, je.EndTime)
}

func TestRegistry(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	importJob := job.NewSimpleJob("importCoffeeJob", repo, nil)
	deleteJob := job.NewSimpleJob("deleteTeaJob", repo, nil)

	registry, err := job.NewRegistry(importJob, deleteJob)
	require.NoError(t, err)
	assert.Equal(t, []string{"deleteTeaJob", "importCoffeeJob"}, registry.Names())

	found, err := registry.Get("importCoffeeJob")
	require.NoError(t, err)
	assert.Same(t, importJob, found)

	_, err = registry.Get("")
	assert.ErrorIs(t, err, exception.ErrUnknownJob, "an empty name never falls back to a default job")
	_, err = registry.Get("noSuchJob")
	assert.ErrorIs(t, err, exception.ErrUnknownJob)
	assert.True(t, exception.IsErrorOfType(err, exception.UnknownJobError))

	_, err = job.NewRegistry(importJob, job.NewSimpleJob("importCoffeeJob", repo, nil))
	assert.Error(t, err)
}
