// Package usecase holds the application services driving jobs: the launcher and the explorer.
package usecase

import (
	"context"
	"fmt"

	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/repository"
	"github.com/tigerroll/coffeebatch/pkg/batch/core/job"
	exception "github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// SimpleJobLauncher implements JobLauncher for local, synchronous execution.
type SimpleJobLauncher struct {
	registry      *job.Registry
	jobRepository repository.JobRepository
	incrementer   port.JobParametersIncrementer
}

// NewSimpleJobLauncher creates a new SimpleJobLauncher. incrementer may be nil, in which case
// parameters are used as given.
func NewSimpleJobLauncher(
	registry *job.Registry,
	repo repository.JobRepository,
	incrementer port.JobParametersIncrementer,
) *SimpleJobLauncher {
	return &SimpleJobLauncher{
		registry:      registry,
		jobRepository: repo,
		incrementer:   incrementer,
	}
}

// Launch launches a job execution and waits for it to finish.
func (l *SimpleJobLauncher) Launch(ctx context.Context, jobName string, jobParameters model.JobParameters) (*model.JobExecution, error) {
	const op = "SimpleJobLauncher.Launch"

	// 1. Resolve the job before touching any state.
	jobDef, err := l.registry.Get(jobName)
	if err != nil {
		logger.Warnf("%s: %v", op, err)
		return nil, err
	}

	// 2. Derive the run identity.
	if jobParameters.Params == nil {
		jobParameters = model.NewJobParameters()
	}
	if l.incrementer != nil {
		jobParameters = l.incrementer.GetNext(jobParameters)
	}
	logger.Infof("Launching Job '%s'. Parameters: %s", jobName, jobParameters.String())

	// 3. Claim it; this is the only check-then-create on the run identity.
	jobExecution, err := l.jobRepository.ClaimJobExecution(ctx, jobName, jobParameters)
	if err != nil {
		logger.Warnf("%s: Job '%s' was not started: %v", op, jobName, err)
		return nil, err
	}
	logger.Infof("Started Job '%s' (Execution ID: %s, Job Instance ID: %s).", jobName, jobExecution.ID, jobExecution.JobInstanceID)

	// 4. Run and record the outcome, even when ctx has been canceled in the meantime.
	runErr := l.run(ctx, jobDef, jobExecution)
	if updateErr := l.jobRepository.UpdateJobExecution(context.WithoutCancel(ctx), jobExecution); updateErr != nil {
		logger.Errorf("%s: Failed to update final JobExecution (ID: %s) state: %v", op, jobExecution.ID, updateErr)
		if runErr == nil {
			return jobExecution, exception.NewBatchError("job_launcher", fmt.Sprintf("Job '%s' completed but its status could not be recorded", jobName), updateErr, false, false)
		}
	}

	if runErr != nil {
		return jobExecution, exception.NewBatchError("job_launcher", fmt.Sprintf("Job '%s' failed (Execution ID: %s)", jobName, jobExecution.ID), runErr, false, false)
	}
	return jobExecution, nil
}

// run executes the job, turning a panic into a failure of the execution.
func (l *SimpleJobLauncher) run(ctx context.Context, jobDef port.Job, jobExecution *model.JobExecution) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job '%s' panicked: %v", jobDef.JobName(), r)
			logger.Errorf("%v", err)
			jobExecution.MarkAsFailed(err)
		}
	}()
	return jobDef.Run(ctx, jobExecution)
}

var _ JobLauncher = (*SimpleJobLauncher)(nil)
