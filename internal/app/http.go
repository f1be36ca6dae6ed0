package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/tigerroll/coffeebatch/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
	"github.com/tigerroll/coffeebatch/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"

	"github.com/tigerroll/coffeebatch/internal/api/handler"
	"github.com/tigerroll/coffeebatch/internal/api/router"
)

// HTTPServerParams are the dependencies of the HTTP trigger.
type HTTPServerParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Cfg       *config.Config
	Launcher  usecase.JobLauncher
	Explorer  usecase.JobExplorer
	Recorder  *metrics.PrometheusRecorder
}

// NewHTTPServer builds the trigger server and binds it to the lifecycle. The listener is opened
// in OnStart so a busy address fails the startup.
func NewHTTPServer(p HTTPServerParams) *http.Server {
	if p.Cfg.Coffee.System.Logging.Level != string(config.LogLevelDebug) {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.SetupRouter(&handler.Dependencies{
		Launcher: p.Launcher,
		Explorer: p.Explorer,
		Logger:   logger.Slog(),
	}, promhttp.HandlerFor(p.Recorder.Registry(), promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              p.Cfg.Coffee.HTTP.Address,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.Infof("HTTP trigger listening on %s", ln.Addr())
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Errorf("HTTP server stopped: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
	return srv
}

// HTTPModule starts the HTTP trigger with the application.
var HTTPModule = fx.Options(
	fx.Provide(NewHTTPServer),
	fx.Invoke(func(*http.Server) {}),
)
