package router_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/repository"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"

	"github.com/tigerroll/coffeebatch/internal/api/handler"
	"github.com/tigerroll/coffeebatch/internal/api/router"
)

type mockLauncher struct {
	mock.Mock
}

func (m *mockLauncher) Launch(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error) {
	args := m.Called(ctx, jobName, params)
	je, _ := args.Get(0).(*model.JobExecution)
	return je, args.Error(1)
}

type mockExplorer struct {
	mock.Mock
}

func (m *mockExplorer) GetJobExecution(ctx context.Context, id string) (*model.JobExecution, error) {
	args := m.Called(ctx, id)
	je, _ := args.Get(0).(*model.JobExecution)
	return je, args.Error(1)
}

func (m *mockExplorer) GetJobNames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(launcher *mockLauncher, explorer *mockExplorer, metrics http.Handler) *gin.Engine {
	return router.SetupRouter(&handler.Dependencies{
		Launcher: launcher,
		Explorer: explorer,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, metrics)
}

func do(r http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func completedExecution(jobName string) *model.JobExecution {
	je := model.NewJobExecution("instance-1", jobName, model.NewJobParameters())
	je.MarkAsStarted()
	se := model.NewStepExecution(je, "importDataCoffeeStep")
	se.ReadCount, se.WriteCount = 3, 3
	se.MarkAsCompleted()
	je.MarkAsCompleted()
	return je
}

func TestRunJob_Success(t *testing.T) {
	launcher := &mockLauncher{}
	launcher.On("Launch", mock.Anything, "importCoffeeJob", mock.Anything).
		Return(completedExecution("importCoffeeJob"), nil).Once()

	w, body := do(newRouter(launcher, &mockExplorer{}, nil), http.MethodPost, "/batch/run/importCoffeeJob")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Job 'importCoffeeJob' started successfully", body["message"])
	execution, ok := body["execution"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "COMPLETED", execution["status"])
	steps := execution["steps"].([]interface{})
	require.Len(t, steps, 1)
	assert.EqualValues(t, 3, steps[0].(map[string]interface{})["write_count"])
	launcher.AssertExpectations(t)
}

func TestRunJob_ErrorMapping(t *testing.T) {
	failed := model.NewJobExecution("instance-1", "importCoffeeJob", model.NewJobParameters())
	failed.MarkAsFailed(exception.ErrMalformedRecord)

	cases := []struct {
		name       string
		execution  *model.JobExecution
		err        error
		wantStatus int
	}{
		{"unknown job", nil, exception.NewUnknownJobError("brewJob"), http.StatusNotFound},
		{"duplicate run", nil, exception.NewDuplicateRunError("importCoffeeJob", "STARTED"), http.StatusConflict},
		{"job failure", failed, exception.NewBatchError("job_launcher", "Job 'importCoffeeJob' failed", exception.ErrMalformedRecord, false, false), http.StatusInternalServerError},
		{"plain error", nil, errors.New("database is locked"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			launcher := &mockLauncher{}
			launcher.On("Launch", mock.Anything, mock.Anything, mock.Anything).Return(tc.execution, tc.err).Once()

			w, body := do(newRouter(launcher, &mockExplorer{}, nil), http.MethodPost, "/batch/run/someJob")

			assert.Equal(t, tc.wantStatus, w.Code)
			msg, _ := body["error"].(string)
			assert.True(t, strings.HasPrefix(msg, "Failed: "), msg)
			assert.Contains(t, msg, tc.err.Error())
			_, hasExecution := body["execution"]
			assert.Equal(t, tc.execution != nil, hasExecution)
		})
	}
}

func TestRunJob_ClientDisconnectDoesNotCancelRun(t *testing.T) {
	var runErr error
	launcher := &mockLauncher{}
	launcher.On("Launch", mock.Anything, "importCoffeeJob", mock.Anything).Run(func(args mock.Arguments) {
		runErr = args.Get(0).(context.Context).Err()
	}).Return(completedExecution("importCoffeeJob"), nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/batch/run/importCoffeeJob", nil).WithContext(ctx)
	newRouter(launcher, &mockExplorer{}, nil).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, runErr)
	launcher.AssertExpectations(t)
}

func TestRunJob_PanicIsRecovered(t *testing.T) {
	launcher := &mockLauncher{}
	launcher.On("Launch", mock.Anything, mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("launcher exploded")
	})

	w, _ := do(newRouter(launcher, &mockExplorer{}, nil), http.MethodPost, "/batch/run/importCoffeeJob")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListJobs(t *testing.T) {
	explorer := &mockExplorer{}
	explorer.On("GetJobNames", mock.Anything).Return([]string{"deleteTeaJob", "importCoffeeJob"}, nil)

	w, body := do(newRouter(&mockLauncher{}, explorer, nil), http.MethodGet, "/batch/jobs")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"deleteTeaJob", "importCoffeeJob"}, body["jobs"])
}

func TestGetExecution(t *testing.T) {
	je := completedExecution("importCoffeeJob")
	explorer := &mockExplorer{}
	explorer.On("GetJobExecution", mock.Anything, je.ID).Return(je, nil)
	explorer.On("GetJobExecution", mock.Anything, "missing").Return(nil, repository.ErrJobExecutionNotFound)
	r := newRouter(&mockLauncher{}, explorer, nil)

	w, body := do(r, http.MethodGet, "/batch/executions/"+je.ID)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, je.ID, body["id"])
	assert.Equal(t, "importCoffeeJob", body["job_name"])

	w, body = do(r, http.MethodGet, "/batch/executions/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Failed: job execution 'missing' not found", body["error"])
}

func TestHealthAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "coffeebatch_job_status_total 1\n")
	})
	r := newRouter(&mockLauncher{}, &mockExplorer{}, metrics)

	w, body := do(r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "coffeebatch_job_status_total")

	w, _ = do(newRouter(&mockLauncher{}, &mockExplorer{}, nil), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
