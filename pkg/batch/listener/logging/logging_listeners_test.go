package logging

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.Configure(&buf, "json")
	logger.SetLogLevel("DEBUG")
	t.Cleanup(func() {
		logger.Configure(os.Stderr, "console")
		logger.SetLogLevel("INFO")
	})
	return &buf
}

func TestLoggingListeners_WriteLifecycle(t *testing.T) {
	buf := captureLog(t)
	ctx := context.Background()

	je := model.NewJobExecution("instance-1", "importCoffeeJob", model.NewJobParameters())
	se := model.NewStepExecution(je, "importDataCoffeeStep")

	NewLoggingJobListener().BeforeJob(ctx, je)
	stepListener := NewLoggingStepListener()
	stepListener.BeforeStep(ctx, se)
	chunkListener := NewLoggingChunkListener()
	chunkListener.BeforeChunk(ctx, se)
	chunkListener.AfterChunkError(ctx, se, errors.New("UNIQUE constraint failed"))

	se.ReadCount = 10
	se.MarkAsFailed(errors.New("UNIQUE constraint failed"))
	assert.Equal(t, model.ExitStatus(""), stepListener.AfterStep(ctx, se))

	je.MarkAsFailed(errors.New("UNIQUE constraint failed"))
	NewLoggingJobListener().AfterJob(ctx, je)

	out := buf.String()
	assert.Contains(t, out, "BeforeJob - JobName: importCoffeeJob")
	assert.Contains(t, out, "BeforeStep - StepName: importDataCoffeeStep")
	assert.Contains(t, out, "AfterChunkError - StepName: importDataCoffeeStep")
	assert.Contains(t, out, "Read: 10")
	assert.Contains(t, out, "AfterJob - JobName: importCoffeeJob, Status: FAILED")
}
