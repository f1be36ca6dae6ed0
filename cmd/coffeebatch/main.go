package main

import (
	"context"
	_ "embed"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tigerroll/coffeebatch/internal/app"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// embeddedConfig embeds the content of the application's YAML configuration file.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// serveCommand starts the HTTP trigger instead of running a single job.
const serveCommand = "serve"

// main launches the job named by the first argument, or serves the HTTP trigger with "serve".
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Shutting down...", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	os.Exit(run(ctx, envFilePath, os.Args[1:]))
}

func run(ctx context.Context, envFilePath string, args []string) int {
	if len(args) == 0 {
		logger.Infof("Please provide job name argument, e.g. importCoffeeJob")
		return 0
	}

	if args[0] == serveCommand {
		if err := app.Serve(ctx, envFilePath, embeddedConfig); err != nil {
			return 1
		}
		return 0
	}

	if err := app.RunJob(ctx, envFilePath, embeddedConfig, args[0]); err != nil {
		return 1
	}
	return 0
}
