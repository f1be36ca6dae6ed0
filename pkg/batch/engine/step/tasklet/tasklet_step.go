// Package tasklet implements the step that runs a single tasklet once.
package tasklet

import (
	"context"

	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/repository"
	"github.com/tigerroll/coffeebatch/pkg/batch/engine/step"
	exception "github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// TaskletStep is an implementation of port.Step for tasklet-oriented processing.
type TaskletStep struct {
	name          string
	tasklet       port.Tasklet
	jobRepository repository.JobRepository
	opts          step.Options
}

// NewTaskletStep creates a new TaskletStep instance.
func NewTaskletStep(name string, tasklet port.Tasklet, jobRepository repository.JobRepository, opts ...step.Option) *TaskletStep {
	return &TaskletStep{
		name:          name,
		tasklet:       tasklet,
		jobRepository: jobRepository,
		opts:          step.NewOptions(opts...),
	}
}

// StepName returns the step name.
func (s *TaskletStep) StepName() string {
	return s.name
}

// Execute runs the tasklet once and records its outcome on stepExecution.
func (s *TaskletStep) Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) (err error) {
	ctx, endSpan := s.opts.Tracer.StartStepSpan(ctx, stepExecution)
	defer endSpan()
	ctx = port.WithStepExecution(ctx, stepExecution)

	logger.Infof("TaskletStep '%s' executing.", s.name)

	stepExecution.MarkAsStarted()
	if err := s.jobRepository.UpdateStepExecution(ctx, stepExecution); err != nil {
		return exception.NewBatchError(s.name, "Failed to update StepExecution status to STARTED", err, false, false)
	}
	s.opts.MetricRecorder.RecordStepStart(ctx, stepExecution)
	s.opts.NotifyBeforeStep(ctx, stepExecution)

	var exitStatus model.ExitStatus
	if err = ctx.Err(); err == nil {
		exitStatus, err = s.tasklet.Execute(ctx, stepExecution)
	}

	if closeErr := s.tasklet.Close(ctx); closeErr != nil {
		logger.Errorf("TaskletStep '%s': Failed to close Tasklet: %v", s.name, closeErr)
		if err == nil {
			err = closeErr
		}
	}

	if err != nil {
		s.opts.Tracer.RecordError(ctx, s.name, err)
		stepExecution.MarkAsFailed(err)
	} else {
		stepExecution.MarkAsCompleted()
		if exitStatus != "" {
			stepExecution.ExitStatus = exitStatus
		}
	}
	s.opts.NotifyAfterStep(ctx, stepExecution)
	s.opts.MetricRecorder.RecordStepEnd(ctx, stepExecution)

	if updateErr := s.jobRepository.UpdateStepExecution(context.WithoutCancel(ctx), stepExecution); updateErr != nil {
		logger.Errorf("TaskletStep '%s': Failed to update final StepExecution state: %v", s.name, updateErr)
		if err == nil {
			err = updateErr
		}
	}

	logger.Infof("TaskletStep '%s' finished. ExitStatus: %s", s.name, stepExecution.ExitStatus)
	return err
}

var _ port.Step = (*TaskletStep)(nil)
