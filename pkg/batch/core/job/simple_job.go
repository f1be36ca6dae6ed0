// Package job provides the sequential job and the registry that resolves jobs by name.
package job

import (
	"context"
	"fmt"

	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/coffeebatch/pkg/batch/core/metrics"
	exception "github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// SimpleJob runs its steps one after another and stops at the first failing step.
type SimpleJob struct {
	name           string
	steps          []port.Step
	jobRepository  repository.JobRepository
	jobListeners   []port.JobExecutionListener
	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
}

// Option configures a SimpleJob.
type Option func(*SimpleJob)

// WithJobListeners registers listeners notified before and after the job.
func WithJobListeners(listeners ...port.JobExecutionListener) Option {
	return func(j *SimpleJob) {
		j.jobListeners = append(j.jobListeners, listeners...)
	}
}

// WithMetricRecorder sets the recorder fed with job start and end.
func WithMetricRecorder(recorder metrics.MetricRecorder) Option {
	return func(j *SimpleJob) {
		if recorder != nil {
			j.metricRecorder = recorder
		}
	}
}

// WithTracer sets the tracer that opens the job span.
func WithTracer(tracer metrics.Tracer) Option {
	return func(j *SimpleJob) {
		if tracer != nil {
			j.tracer = tracer
		}
	}
}

// NewSimpleJob creates a job running steps in the given order.
func NewSimpleJob(name string, jobRepository repository.JobRepository, steps []port.Step, opts ...Option) *SimpleJob {
	j := &SimpleJob{
		name:           name,
		steps:          steps,
		jobRepository:  jobRepository,
		metricRecorder: metrics.NewNoOpMetricRecorder(),
		tracer:         metrics.NewNoOpTracer(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// JobName returns the job name.
func (j *SimpleJob) JobName() string {
	return j.name
}

// Steps returns the steps in execution order.
func (j *SimpleJob) Steps() []port.Step {
	return j.steps
}

// Run executes the steps sequentially. A step starts only after the previous one completed.
func (j *SimpleJob) Run(ctx context.Context, jobExecution *model.JobExecution) (err error) {
	logger.Infof("Starting Job '%s' (Execution ID: %s).", j.name, jobExecution.ID)

	ctx, finishSpan := j.tracer.StartJobSpan(ctx, jobExecution)
	defer finishSpan()
	j.metricRecorder.RecordJobStart(ctx, jobExecution)

	for _, l := range j.jobListeners {
		l.BeforeJob(ctx, jobExecution)
	}

	defer func() {
		if err != nil {
			j.tracer.RecordError(ctx, j.name, err)
			jobExecution.MarkAsFailed(err)
		} else {
			jobExecution.MarkAsCompleted()
		}
		for _, l := range j.jobListeners {
			l.AfterJob(ctx, jobExecution)
		}
		j.metricRecorder.RecordJobEnd(ctx, jobExecution)
		logger.Infof("Job '%s' (Execution ID: %s) finished with status %s in %s.", j.name, jobExecution.ID, jobExecution.Status, jobExecution.Duration())
	}()

	for _, s := range j.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := j.runStep(ctx, jobExecution, s); err != nil {
			return err
		}
	}
	return nil
}

func (j *SimpleJob) runStep(ctx context.Context, jobExecution *model.JobExecution, s port.Step) error {
	stepExecution := model.NewStepExecution(jobExecution, s.StepName())
	if err := j.jobRepository.SaveStepExecution(ctx, stepExecution); err != nil {
		return exception.NewBatchError(j.name, fmt.Sprintf("Failed to save StepExecution for step '%s'", s.StepName()), err, false, false)
	}

	if err := s.Execute(ctx, jobExecution, stepExecution); err != nil {
		logger.Errorf("Job '%s': Step '%s' failed: %v", j.name, s.StepName(), err)
		return err
	}
	return nil
}

var _ port.Job = (*SimpleJob)(nil)
