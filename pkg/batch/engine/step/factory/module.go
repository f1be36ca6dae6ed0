package factory

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
	repository "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/coffeebatch/pkg/batch/core/metrics"
	tx "github.com/tigerroll/coffeebatch/pkg/batch/core/tx"
	"github.com/tigerroll/coffeebatch/pkg/batch/engine/step"
)

// StepFactoryParams are the shared collaborators of the steps built by the application.
type StepFactoryParams struct {
	fx.In
	Cfg            *config.Config
	JobRepository  repository.JobRepository
	TxManager      tx.TransactionManager
	MetricRecorder metrics.MetricRecorder       `optional:"true"`
	Tracer         metrics.Tracer               `optional:"true"`
	StepListeners  []port.StepExecutionListener `group:"step_listeners"`
	ChunkListeners []port.ChunkListener         `group:"chunk_listeners"`
}

// NewStepFactoryFromParams builds the StepFactory with the configured chunk size.
func NewStepFactoryFromParams(p StepFactoryParams) *StepFactory {
	return NewStepFactory(p.JobRepository, p.TxManager, p.Cfg.Coffee.Batch.ChunkSize,
		step.WithMetricRecorder(p.MetricRecorder),
		step.WithTracer(p.Tracer),
		step.WithStepExecutionListeners(p.StepListeners...),
		step.WithChunkListeners(p.ChunkListeners...),
	)
}

// Module provides the StepFactory.
var Module = fx.Options(
	fx.Provide(NewStepFactoryFromParams),
)
