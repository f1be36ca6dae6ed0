package job_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/storage"
	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/coffeebatch/pkg/batch/core/application/usecase"
	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/coffeebatch/pkg/batch/core/job"
	"github.com/tigerroll/coffeebatch/pkg/batch/core/support/incrementer"
	"github.com/tigerroll/coffeebatch/pkg/batch/engine/step/factory"
	sqlrepo "github.com/tigerroll/coffeebatch/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/coffeebatch/pkg/batch/test"

	"github.com/tigerroll/coffeebatch/internal/domain/entity"
	coffeejob "github.com/tigerroll/coffeebatch/internal/job"
	"github.com/tigerroll/coffeebatch/internal/migration"
	"github.com/tigerroll/coffeebatch/internal/step/reader"
)

const threeCoffees = `brand,origin,characteristics
arabica,brazil,fruity
robusta,vietnam,earthy
arabica,italy,floral
`

type harness struct {
	db        *test.TestDB
	repo      *sqlrepo.SQLJobRepository
	registry  *job.Registry
	launcher  *usecase.SimpleJobLauncher
	exportDir string
}

func newHarness(t *testing.T, csv string) *harness {
	t.Helper()
	db := test.NewSQLiteTestDB(t, migration.CoffeeMigrationsFS())

	inputFile := filepath.Join(t.TempDir(), "coffee.csv")
	require.NoError(t, os.WriteFile(inputFile, []byte(csv), 0o644))
	db.Config.Coffee.Batch.InputFile = inputFile
	db.Config.Coffee.Batch.ExportDir = t.TempDir()

	repo := sqlrepo.NewSQLJobRepositoryFromConfig(db.Config, db.Resolver)
	storageResolver := storage.NewConnectionResolverFromProviders(db.Config, local.NewLocalProvider(db.Config))
	t.Cleanup(func() { _ = storageResolver.CloseAll() })

	steps := factory.NewStepFactory(repo, db.TxManager, db.Config.Coffee.Batch.ChunkSize)
	jobs := coffeejob.NewCoffeeJobs(db.Config, repo, db.Resolver, storageResolver, steps)
	registry, err := jobs.Registry()
	require.NoError(t, err)

	return &harness{
		db:        db,
		repo:      repo,
		registry:  registry,
		launcher:  usecase.NewSimpleJobLauncher(registry, repo, incrementer.NewRunIDIncrementer(incrementer.DefaultRunIDKey)),
		exportDir: db.Config.Coffee.Batch.ExportDir,
	}
}

func (h *harness) coffees(t *testing.T) []entity.Coffee {
	t.Helper()
	var out []entity.Coffee
	require.NoError(t, h.db.Conn.ExecuteQueryAdvanced(context.Background(), &out, nil, "id ASC", 0))
	return out
}

func (h *harness) launch(t *testing.T, jobName string) (*model.JobExecution, error) {
	t.Helper()
	return h.launcher.Launch(context.Background(), jobName, model.NewJobParameters())
}

func TestImportCoffeeJob_StoresUppercasedRows(t *testing.T) {
	h := newHarness(t, threeCoffees)

	je, err := h.launch(t, coffeejob.ImportCoffeeJobName)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)

	assert.Equal(t, []entity.Coffee{
		{ID: 1, Brand: "ARABICA", Origin: "BRAZIL", Characteristics: "FRUITY"},
		{ID: 2, Brand: "ROBUSTA", Origin: "VIETNAM", Characteristics: "EARTHY"},
		{ID: 3, Brand: "ARABICA", Origin: "ITALY", Characteristics: "FLORAL"},
	}, h.coffees(t))

	stored, err := h.repo.FindJobExecutionByID(context.Background(), je.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, stored.Status)
	require.Len(t, stored.StepExecutions, 1)
	assert.Equal(t, coffeejob.ImportDataCoffeeStepName, stored.StepExecutions[0].StepName)
	assert.Equal(t, 3, stored.StepExecutions[0].ReadCount)
	assert.Equal(t, 3, stored.StepExecutions[0].WriteCount)
}

func TestMultiStepCoffeeJob_PromotesItalyAndDeletesTea(t *testing.T) {
	h := newHarness(t, threeCoffees+"sencha,japan,tea\n")

	_, err := h.launch(t, coffeejob.ImportCoffeeJobName)
	require.NoError(t, err)
	// Normalize uppercases "tea", and the tasklet only matches the exact value.
	_, err = h.db.Conn.ExecuteRaw(context.Background(), "INSERT INTO coffee (brand, origin, characteristics) VALUES ('genmaicha', 'japan', 'tea')")
	require.NoError(t, err)

	je, err := h.launch(t, coffeejob.MultiStepCoffeeJobName)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	require.Len(t, je.StepExecutions, 2)
	assert.Equal(t, coffeejob.ProcessItalianCoffeeStepName, je.StepExecutions[0].StepName)
	assert.Equal(t, 1, je.StepExecutions[0].WriteCount)
	assert.Equal(t, coffeejob.DeleteTeaStepName, je.StepExecutions[1].StepName)

	got := h.coffees(t)
	require.Len(t, got, 4)
	assert.Equal(t, "FRUITY", got[0].Characteristics)
	assert.Equal(t, "EARTHY", got[1].Characteristics)
	assert.Equal(t, "Premium FLORAL", got[2].Characteristics)
	assert.Equal(t, "TEA", got[3].Characteristics)
	for _, c := range got {
		assert.NotEqual(t, "tea", c.Characteristics)
	}
}

func TestImportCoffeeJob_MalformedFirstRowStoresNothing(t *testing.T) {
	h := newHarness(t, "brand,origin,characteristics\narabica,brazil\nrobusta,vietnam,earthy\n")

	je, err := h.launch(t, coffeejob.ImportCoffeeJobName)
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrMalformedRecord)
	assert.True(t, exception.IsErrorOfType(err, "MalformedRecordError"))
	require.NotNil(t, je)
	assert.Equal(t, model.BatchStatusFailed, je.Status)
	assert.Empty(t, h.coffees(t))
}

func TestImportCoffeeJob_EmptyFieldIsStoredEmpty(t *testing.T) {
	h := newHarness(t, "brand,origin,characteristics\narabica,,fruity\n")

	_, err := h.launch(t, coffeejob.ImportCoffeeJobName)
	require.NoError(t, err)
	assert.Equal(t, []entity.Coffee{{ID: 1, Brand: "ARABICA", Origin: "", Characteristics: "FRUITY"}}, h.coffees(t))
}

func TestLaunch_UnknownJobLeavesDataUntouched(t *testing.T) {
	h := newHarness(t, threeCoffees)
	_, err := h.launch(t, coffeejob.ImportCoffeeJobName)
	require.NoError(t, err)

	je, err := h.launch(t, "promoteEverythingJob")
	assert.Nil(t, je)
	assert.ErrorIs(t, err, exception.ErrUnknownJob)
	assert.Len(t, h.coffees(t), 3)
}

func TestLaunch_CanceledLaunchLeavesOtherReadersRunning(t *testing.T) {
	h := newHarness(t, threeCoffees)
	_, err := h.launch(t, coffeejob.ImportCoffeeJobName)
	require.NoError(t, err)

	ctx := context.Background()
	r := reader.NewAllCoffeeReader(h.db.Resolver, 1)
	require.NoError(t, r.Open(ctx))
	t.Cleanup(func() { _ = r.Close(ctx) })
	first, err := r.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = h.launcher.Launch(canceled, coffeejob.DeleteTeaJobName, model.NewJobParameters())
	require.Error(t, err)

	second, err := r.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)
	assert.Len(t, h.coffees(t), 3)
}

func TestLaunch_SameParametersAfterCompletionIsDuplicate(t *testing.T) {
	h := newHarness(t, threeCoffees)
	params := model.NewJobParameters()
	params.Put("run.id", int64(1))
	launcher := usecase.NewSimpleJobLauncher(h.registry, h.repo, nil)

	_, err := launcher.Launch(context.Background(), coffeejob.DeleteTeaJobName, params)
	require.NoError(t, err)

	_, err = launcher.Launch(context.Background(), coffeejob.DeleteTeaJobName, params)
	assert.ErrorIs(t, err, exception.ErrDuplicateRun)
}

func TestLaunch_ConcurrentImportsGetDistinctRuns(t *testing.T) {
	h := newHarness(t, threeCoffees)

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.launch(t, coffeejob.ImportCoffeeJobName)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		// SQLite may refuse a writer while another one holds the lock; that is a failed run, never a shared reader.
		if err != nil {
			assert.False(t, errors.Is(err, exception.ErrDuplicateRun), "run ids are distinct: %v", err)
		}
	}
	assert.Zero(t, len(h.coffees(t))%3, "each completed import stores the whole file")
}

func TestExportCoffeeJob_WritesParquetPerOrigin(t *testing.T) {
	h := newHarness(t, threeCoffees+"lavazza,italy,bold\n")
	_, err := h.launch(t, coffeejob.ImportCoffeeJobName)
	require.NoError(t, err)

	je, err := h.launch(t, coffeejob.ExportCoffeeJobName)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)

	var files []string
	root := filepath.Join(h.exportDir, coffeejob.ExportPrefix)
	require.NoError(t, filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".parquet") {
			rel, _ := filepath.Rel(root, path)
			files = append(files, filepath.Dir(rel))
		}
		return nil
	}))
	assert.ElementsMatch(t, []string{"origin=BRAZIL", "origin=ITALY", "origin=VIETNAM"}, files)
}
