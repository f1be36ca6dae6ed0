// Package metrics declares the hooks the engine calls to record metrics and traces.
// Implementations live in infrastructure/metrics; the no-op versions here are used when none is configured.
package metrics

import (
	"context"

	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
)

// MetricRecorder records job, step and chunk level metrics.
type MetricRecorder interface {
	RecordJobStart(ctx context.Context, execution *model.JobExecution)
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)
	RecordStepStart(ctx context.Context, execution *model.StepExecution)
	RecordStepEnd(ctx context.Context, execution *model.StepExecution)
	RecordItemRead(ctx context.Context, execution *model.StepExecution)
	RecordItemFilter(ctx context.Context, execution *model.StepExecution)
	RecordItemWrite(ctx context.Context, execution *model.StepExecution, count int)
	RecordChunkCommit(ctx context.Context, execution *model.StepExecution)
	RecordChunkRollback(ctx context.Context, execution *model.StepExecution)
}

// Tracer opens spans around job and step execution.
type Tracer interface {
	StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func())
	StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func())
	RecordError(ctx context.Context, module string, err error)
}
