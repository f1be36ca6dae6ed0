// Package step holds what the chunk and tasklet step executors share: construction options and
// the bookkeeping around a step execution.
package step

import (
	"context"

	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/coffeebatch/pkg/batch/core/metrics"
)

// Options carry the optional collaborators of a step.
type Options struct {
	StepExecutionListeners []port.StepExecutionListener
	ChunkListeners         []port.ChunkListener
	MetricRecorder         metrics.MetricRecorder
	Tracer                 metrics.Tracer
}

// Option configures a step.
type Option func(*Options)

// WithStepExecutionListeners registers listeners notified before and after the step.
func WithStepExecutionListeners(listeners ...port.StepExecutionListener) Option {
	return func(o *Options) {
		o.StepExecutionListeners = append(o.StepExecutionListeners, listeners...)
	}
}

// WithChunkListeners registers listeners notified around every chunk. Tasklet steps ignore them.
func WithChunkListeners(listeners ...port.ChunkListener) Option {
	return func(o *Options) {
		o.ChunkListeners = append(o.ChunkListeners, listeners...)
	}
}

// WithMetricRecorder sets the recorder fed by the step.
func WithMetricRecorder(recorder metrics.MetricRecorder) Option {
	return func(o *Options) {
		if recorder != nil {
			o.MetricRecorder = recorder
		}
	}
}

// WithTracer sets the tracer that opens the step span.
func WithTracer(tracer metrics.Tracer) Option {
	return func(o *Options) {
		if tracer != nil {
			o.Tracer = tracer
		}
	}
}

// NewOptions applies opts over no-op metrics and tracing.
func NewOptions(opts ...Option) Options {
	o := Options{
		MetricRecorder: metrics.NewNoOpMetricRecorder(),
		Tracer:         metrics.NewNoOpTracer(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NotifyBeforeStep calls BeforeStep on every listener.
func (o Options) NotifyBeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	for _, l := range o.StepExecutionListeners {
		l.BeforeStep(ctx, stepExecution)
	}
}

// NotifyAfterStep calls AfterStep on every listener. A non-empty exit status returned by a
// listener replaces the step's exit status, unless the step failed.
func (o Options) NotifyAfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	for _, l := range o.StepExecutionListeners {
		exit := l.AfterStep(ctx, stepExecution)
		if exit != "" && stepExecution.Status != model.BatchStatusFailed {
			stepExecution.ExitStatus = exit
		}
	}
}
