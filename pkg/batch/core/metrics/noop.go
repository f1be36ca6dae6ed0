package metrics

import (
	"context"

	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
)

// NoOpMetricRecorder discards everything.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder returns a MetricRecorder that does nothing.
func NewNoOpMetricRecorder() MetricRecorder { return &NoOpMetricRecorder{} }

func (r *NoOpMetricRecorder) RecordJobStart(context.Context, *model.JobExecution)        {}
func (r *NoOpMetricRecorder) RecordJobEnd(context.Context, *model.JobExecution)          {}
func (r *NoOpMetricRecorder) RecordStepStart(context.Context, *model.StepExecution)      {}
func (r *NoOpMetricRecorder) RecordStepEnd(context.Context, *model.StepExecution)        {}
func (r *NoOpMetricRecorder) RecordItemRead(context.Context, *model.StepExecution)       {}
func (r *NoOpMetricRecorder) RecordItemFilter(context.Context, *model.StepExecution)     {}
func (r *NoOpMetricRecorder) RecordItemWrite(context.Context, *model.StepExecution, int) {}
func (r *NoOpMetricRecorder) RecordChunkCommit(context.Context, *model.StepExecution)    {}
func (r *NoOpMetricRecorder) RecordChunkRollback(context.Context, *model.StepExecution)  {}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// NoOpTracer opens no spans.
type NoOpTracer struct{}

// NewNoOpTracer returns a Tracer that does nothing.
func NewNoOpTracer() Tracer { return &NoOpTracer{} }

func (t *NoOpTracer) StartJobSpan(ctx context.Context, _ *model.JobExecution) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) StartStepSpan(ctx context.Context, _ *model.StepExecution) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) RecordError(context.Context, string, error) {}

var _ Tracer = (*NoOpTracer)(nil)
