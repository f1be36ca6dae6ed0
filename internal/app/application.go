// Package app wires the coffee batch application with uber-fx and runs it either once for a
// single job or as the HTTP trigger.
package app

import (
	"context"
	"time"

	"go.uber.org/fx"

	gormadapter "github.com/tigerroll/coffeebatch/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/storage"
	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/coffeebatch/pkg/batch/component/tasklet/migration"
	"github.com/tigerroll/coffeebatch/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/coffeebatch/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/coffeebatch/pkg/batch/infrastructure/repository"
	batchlistener "github.com/tigerroll/coffeebatch/pkg/batch/listener"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"

	appJob "github.com/tigerroll/coffeebatch/internal/job"
	coffeeMigration "github.com/tigerroll/coffeebatch/internal/migration"
)

// stopTimeout bounds the shutdown of the fx application.
const stopTimeout = 30 * time.Second

// Options returns the fx options shared by every run mode. The DB providers are those named by
// the DB_ADAPTORS environment variable, all of them by default.
func Options(envFilePath string, embeddedConfig config.EmbeddedConfig) fx.Option {
	return fx.Options(
		fx.Supply(
			embeddedConfig,
			fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
		),
		logger.Module,
		config.Module,

		gormadapter.Module,
		dbProvidersFromEnv(),
		migration.Module,
		coffeeMigration.Module,
		repository.Module,

		storage.Module,
		local.Module,
		gcs.Module,

		metrics.Module,
		batchlistener.Module,
		usecase.Module,
		appJob.Module,
	)
}

// RunJob starts the application, launches jobName once and stops the application again.
// The returned error is the launch error, or a startup failure.
func RunJob(ctx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, jobName string) error {
	var launcher usecase.JobLauncher
	app := fx.New(
		Options(envFilePath, embeddedConfig),
		fx.Populate(&launcher),
	)
	if err := app.Start(ctx); err != nil {
		logger.Errorf("Failed to start application: %v", err)
		return err
	}
	defer stop(app)

	jobExecution, err := launcher.Launch(ctx, jobName, model.NewJobParameters())
	if err != nil {
		if jobExecution != nil {
			logger.Errorf("Job '%s' (Execution ID: %s) finished with status %s: %v", jobName, jobExecution.ID, jobExecution.Status, err)
		} else {
			logger.Errorf("Job '%s' was not started: %v", jobName, err)
		}
		return err
	}
	logger.Infof("Job '%s' (Execution ID: %s) finished with status %s, ExitStatus: %s",
		jobName, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus)
	return nil
}

// Serve runs the HTTP trigger until ctx is done.
func Serve(ctx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig) error {
	app := fx.New(
		Options(envFilePath, embeddedConfig),
		HTTPModule,
	)
	startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		logger.Errorf("Failed to start application: %v", err)
		return err
	}
	<-ctx.Done()
	logger.Infof("Shutting down HTTP trigger...")
	return stop(app)
}

func stop(app *fx.App) error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		logger.Errorf("Failed to stop application: %v", err)
		return err
	}
	return nil
}
