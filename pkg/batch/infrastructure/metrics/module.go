package metrics

import (
	"context"

	"go.uber.org/fx"

	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
	metrics "github.com/tigerroll/coffeebatch/pkg/batch/core/metrics"
)

func newTracer(lc fx.Lifecycle, cfg *config.Config) (*OpenTelemetryTracer, error) {
	t, err := NewOpenTelemetryTracer(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: t.Shutdown})
	return t, nil
}

// Module provides the PrometheusRecorder and the OpenTelemetryTracer, both as themselves and as the
// core interfaces.
var Module = fx.Options(
	fx.Provide(NewPrometheusRecorder),
	fx.Provide(func(r *PrometheusRecorder) metrics.MetricRecorder { return r }),
	fx.Provide(newTracer),
	fx.Provide(func(t *OpenTelemetryTracer) metrics.Tracer { return t }),
)
