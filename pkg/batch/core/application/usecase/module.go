package usecase

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	"github.com/tigerroll/coffeebatch/pkg/batch/core/support/incrementer"
)

// Module is the Fx module for JobLauncher and JobExplorer. It expects a *job.Registry and a
// repository.JobRepository to be provided elsewhere.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		func() *incrementer.RunIDIncrementer {
			return incrementer.NewRunIDIncrementer(incrementer.DefaultRunIDKey)
		},
		fx.As(new(port.JobParametersIncrementer)),
	)),
	fx.Provide(fx.Annotate(
		NewSimpleJobLauncher,
		fx.As(new(JobLauncher)),
	)),
	fx.Provide(fx.Annotate(
		NewSimpleJobExplorer,
		fx.As(new(JobExplorer)),
	)),
)
