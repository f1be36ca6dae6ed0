// Package handler holds the HTTP handlers of the batch trigger.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tigerroll/coffeebatch/pkg/batch/core/application/usecase"
	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/repository"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
)

// Dependencies are the services used by the handlers.
type Dependencies struct {
	Launcher usecase.JobLauncher
	Explorer usecase.JobExplorer
	Logger   *slog.Logger
}

// BatchHandler launches jobs and reads their executions.
type BatchHandler struct {
	launcher usecase.JobLauncher
	explorer usecase.JobExplorer
	logger   *slog.Logger
}

// NewBatchHandler creates a BatchHandler.
func NewBatchHandler(deps *Dependencies) *BatchHandler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchHandler{launcher: deps.Launcher, explorer: deps.Explorer, logger: logger}
}

// Logger returns the request logger.
func (h *BatchHandler) Logger() *slog.Logger {
	return h.logger
}

// StepExecutionResponse is the JSON view of a step execution.
type StepExecutionResponse struct {
	StepName      string     `json:"step_name"`
	Status        string     `json:"status"`
	ExitStatus    string     `json:"exit_status"`
	ReadCount     int        `json:"read_count"`
	WriteCount    int        `json:"write_count"`
	FilterCount   int        `json:"filter_count"`
	CommitCount   int        `json:"commit_count"`
	RollbackCount int        `json:"rollback_count"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	Failures      []string   `json:"failures,omitempty"`
}

// JobExecutionResponse is the JSON view of a job execution.
type JobExecutionResponse struct {
	ID            string                  `json:"id"`
	JobInstanceID string                  `json:"job_instance_id"`
	JobName       string                  `json:"job_name"`
	Parameters    map[string]interface{}  `json:"parameters"`
	Status        string                  `json:"status"`
	ExitStatus    string                  `json:"exit_status"`
	StartTime     time.Time               `json:"start_time"`
	EndTime       *time.Time              `json:"end_time,omitempty"`
	Failures      []string                `json:"failures,omitempty"`
	Steps         []StepExecutionResponse `json:"steps"`
}

// NewJobExecutionResponse converts je.
func NewJobExecutionResponse(je *model.JobExecution) JobExecutionResponse {
	steps := make([]StepExecutionResponse, 0, len(je.StepExecutions))
	for _, se := range je.StepExecutions {
		steps = append(steps, StepExecutionResponse{
			StepName:      se.StepName,
			Status:        string(se.Status),
			ExitStatus:    string(se.ExitStatus),
			ReadCount:     se.ReadCount,
			WriteCount:    se.WriteCount,
			FilterCount:   se.FilterCount,
			CommitCount:   se.CommitCount,
			RollbackCount: se.RollbackCount,
			StartTime:     se.StartTime,
			EndTime:       se.EndTime,
			Failures:      se.Failures,
		})
	}
	return JobExecutionResponse{
		ID:            je.ID,
		JobInstanceID: je.JobInstanceID,
		JobName:       je.JobName,
		Parameters:    je.Parameters.Params,
		Status:        string(je.Status),
		ExitStatus:    string(je.ExitStatus),
		StartTime:     je.StartTime,
		EndTime:       je.EndTime,
		Failures:      je.Failures,
		Steps:         steps,
	}
}

// RunJob handles POST /batch/run/:jobName
// The job runs synchronously within the request; every call gets a fresh run id.
func (h *BatchHandler) RunJob(c *gin.Context) {
	jobName := c.Param("jobName")
	h.logger.Info("RunJob called", slog.String("job_name", jobName))

	// A client that hangs up does not abort the run: its chunks and bookkeeping still complete.
	je, err := h.launcher.Launch(context.WithoutCancel(c.Request.Context()), jobName, model.NewJobParameters())
	if err != nil {
		status := statusOf(err)
		h.logger.Error("Job launch failed",
			slog.String("job_name", jobName),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
		body := gin.H{"error": fmt.Sprintf("Failed: %s", err.Error())}
		if je != nil {
			body["execution"] = NewJobExecutionResponse(je)
		}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   fmt.Sprintf("Job '%s' started successfully", jobName),
		"execution": NewJobExecutionResponse(je),
	})
}

// ListJobs handles GET /batch/jobs
func (h *BatchHandler) ListJobs(c *gin.Context) {
	names, err := h.explorer.GetJobNames(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed: %s", err.Error())})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": names})
}

// GetExecution handles GET /batch/executions/:id
func (h *BatchHandler) GetExecution(c *gin.Context) {
	id := c.Param("id")
	je, err := h.explorer.GetJobExecution(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrJobExecutionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Failed: job execution '%s' not found", id)})
			return
		}
		h.logger.Error("Failed to get job execution", slog.String("id", id), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed: %s", err.Error())})
		return
	}
	c.JSON(http.StatusOK, NewJobExecutionResponse(je))
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, exception.ErrUnknownJob):
		return http.StatusNotFound
	case errors.Is(err, exception.ErrDuplicateRun):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
