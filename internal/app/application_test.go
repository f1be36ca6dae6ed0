package app_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"

	"github.com/tigerroll/coffeebatch/internal/app"
)

func testConfig(t *testing.T, httpAddress string) config.EmbeddedConfig {
	t.Helper()
	dir := t.TempDir()
	return config.EmbeddedConfig(fmt.Sprintf(`
coffee:
  batch:
    chunk_size: 10
    export_dir: %q
  system:
    logging:
      level: WARN
  http:
    address: %q
  database:
    coffee:
      type: sqlite
      database: %q
`, filepath.Join(dir, "exports"), httpAddress, filepath.Join(dir, "coffee.db")))
}

func TestOptions_GraphIsComplete(t *testing.T) {
	require.NoError(t, fx.ValidateApp(app.Options("", testConfig(t, ":0")), app.HTTPModule))
}

func TestRunJob(t *testing.T) {
	embedded := testConfig(t, ":0")
	ctx := context.Background()

	require.NoError(t, app.RunJob(ctx, "", embedded, "importCoffeeJob"))
	// The database file outlives the first run, so a second import and the follow-ups see its rows.
	require.NoError(t, app.RunJob(ctx, "", embedded, "multiStepCoffeeJob"))
	require.NoError(t, app.RunJob(ctx, "", embedded, "exportCoffeeJob"))

	err := app.RunJob(ctx, "", embedded, "brewCoffeeJob")
	assert.ErrorIs(t, err, exception.ErrUnknownJob)
}

func TestServe_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, "", testConfig(t, "127.0.0.1:0")) }()

	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(30 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
