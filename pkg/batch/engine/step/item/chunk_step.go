// Package item implements the chunk-oriented step: read up to chunkSize items, process them,
// and write the surviving items in one transaction per chunk.
package item

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"

	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/repository"
	tx "github.com/tigerroll/coffeebatch/pkg/batch/core/tx"
	"github.com/tigerroll/coffeebatch/pkg/batch/engine/step"
	exception "github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// DefaultChunkSize is used when a step is built with a chunk size below 1.
const DefaultChunkSize = 10

// ChunkStep is an implementation of port.Step for chunk-oriented processing.
// Chunks are processed strictly one after another. Each non-empty chunk is written inside its own
// transaction; a failed chunk is rolled back, and chunks committed before it stay committed.
type ChunkStep[I, O any] struct {
	name          string
	reader        port.ItemReader[I]
	processor     port.ItemProcessor[I, O]
	writer        port.ItemWriter[O]
	chunkSize     int
	jobRepository repository.JobRepository
	txManager     tx.TransactionManager
	opts          step.Options
}

// NewChunkStep creates a new ChunkStep.
func NewChunkStep[I, O any](
	name string,
	reader port.ItemReader[I],
	processor port.ItemProcessor[I, O],
	writer port.ItemWriter[O],
	chunkSize int,
	jobRepository repository.JobRepository,
	txManager tx.TransactionManager,
	opts ...step.Option,
) *ChunkStep[I, O] {
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}
	return &ChunkStep[I, O]{
		name:          name,
		reader:        reader,
		processor:     processor,
		writer:        writer,
		chunkSize:     chunkSize,
		jobRepository: jobRepository,
		txManager:     txManager,
		opts:          step.NewOptions(opts...),
	}
}

// StepName returns the step name.
func (s *ChunkStep[I, O]) StepName() string {
	return s.name
}

// ChunkSize returns the maximum number of items per chunk.
func (s *ChunkStep[I, O]) ChunkSize() int {
	return s.chunkSize
}

// Execute runs the chunk loop until the reader is exhausted or a chunk fails.
func (s *ChunkStep[I, O]) Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) (err error) {
	ctx, endSpan := s.opts.Tracer.StartStepSpan(ctx, stepExecution)
	defer endSpan()
	ctx = port.WithStepExecution(ctx, stepExecution)

	logger.Infof("ChunkStep '%s' executing (chunk size %d).", s.name, s.chunkSize)

	stepExecution.MarkAsStarted()
	if err := s.jobRepository.UpdateStepExecution(ctx, stepExecution); err != nil {
		return exception.NewBatchError(s.name, "Failed to update StepExecution status to STARTED", err, false, false)
	}
	s.opts.MetricRecorder.RecordStepStart(ctx, stepExecution)
	s.opts.NotifyBeforeStep(ctx, stepExecution)

	err = s.run(ctx, stepExecution)

	if err != nil {
		s.opts.Tracer.RecordError(ctx, s.name, err)
		stepExecution.MarkAsFailed(err)
	} else {
		stepExecution.MarkAsCompleted()
	}
	s.opts.NotifyAfterStep(ctx, stepExecution)
	s.opts.MetricRecorder.RecordStepEnd(ctx, stepExecution)

	if updateErr := s.jobRepository.UpdateStepExecution(context.WithoutCancel(ctx), stepExecution); updateErr != nil {
		logger.Errorf("ChunkStep '%s': Failed to update final StepExecution state: %v", s.name, updateErr)
		if err == nil {
			err = updateErr
		}
	}

	logger.Infof("ChunkStep '%s' finished. ExitStatus: %s (read=%d, filtered=%d, written=%d, commits=%d, rollbacks=%d)",
		s.name, stepExecution.ExitStatus, stepExecution.ReadCount, stepExecution.FilterCount,
		stepExecution.WriteCount, stepExecution.CommitCount, stepExecution.RollbackCount)
	return err
}

// run opens the reader and writer, drives the chunk loop and closes both on every path.
func (s *ChunkStep[I, O]) run(ctx context.Context, stepExecution *model.StepExecution) (err error) {
	if err := s.reader.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if closeErr := s.reader.Close(ctx); closeErr != nil {
			logger.Warnf("ChunkStep '%s': Failed to close ItemReader: %v", s.name, closeErr)
			if err == nil {
				err = closeErr
			}
		}
	}()

	if err := s.writer.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if closeErr := s.writer.Close(ctx); closeErr != nil {
			logger.Warnf("ChunkStep '%s': Failed to close ItemWriter: %v", s.name, closeErr)
			if err == nil {
				err = closeErr
			}
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		for _, l := range s.opts.ChunkListeners {
			l.BeforeChunk(ctx, stepExecution)
		}

		items, eof, err := s.readAndProcess(ctx, stepExecution)
		if err == nil && len(items) > 0 {
			err = s.write(ctx, stepExecution, items)
		}
		if err != nil {
			for _, l := range s.opts.ChunkListeners {
				l.AfterChunkError(ctx, stepExecution, err)
			}
			return err
		}
		for _, l := range s.opts.ChunkListeners {
			l.AfterChunk(ctx, stepExecution)
		}

		if eof {
			logger.Debugf("ChunkStep '%s': Reached end of input. Exiting chunk loop.", s.name)
			return nil
		}
	}
}

// readAndProcess pulls up to chunkSize items and processes each one. Items the processor maps to
// nil are dropped and counted as filtered. Reader and processor errors are returned unchanged.
func (s *ChunkStep[I, O]) readAndProcess(ctx context.Context, stepExecution *model.StepExecution) (items []O, eof bool, err error) {
	items = make([]O, 0, s.chunkSize)
	for read := 0; read < s.chunkSize; read++ {
		item, readErr := s.reader.Read(ctx)
		if readErr != nil {
			if errors.Is(readErr, io.EOF) || errors.Is(readErr, port.ErrNoMoreItems) {
				return items, true, nil
			}
			return nil, false, readErr
		}
		stepExecution.ReadCount++
		s.opts.MetricRecorder.RecordItemRead(ctx, stepExecution)

		processed, processErr := s.processor.Process(ctx, item)
		if processErr != nil {
			return nil, false, processErr
		}
		if isNil(processed) {
			stepExecution.FilterCount++
			s.opts.MetricRecorder.RecordItemFilter(ctx, stepExecution)
			continue
		}
		items = append(items, processed)
	}
	return items, false, nil
}

// write persists one chunk: begin, write, commit. Any failure rolls the chunk back and the
// transaction is released on every path.
func (s *ChunkStep[I, O]) write(ctx context.Context, stepExecution *model.StepExecution, items []O) error {
	t, err := s.txManager.Begin(ctx)
	if err != nil {
		return exception.NewBatchError(s.name, "Failed to begin transaction for chunk", err, false, false)
	}
	txCtx := tx.WithTx(ctx, t)

	if writeErr := s.writer.Write(txCtx, t, items); writeErr != nil {
		s.rollback(ctx, t, stepExecution)
		return writeErr
	}
	if commitErr := s.txManager.Commit(t); commitErr != nil {
		s.rollback(ctx, t, stepExecution)
		return exception.NewBatchError(s.name, fmt.Sprintf("Failed to commit chunk of %d items", len(items)), commitErr, false, false)
	}

	stepExecution.CommitCount++
	stepExecution.WriteCount += len(items)
	s.opts.MetricRecorder.RecordItemWrite(ctx, stepExecution, len(items))
	s.opts.MetricRecorder.RecordChunkCommit(ctx, stepExecution)
	logger.Debugf("ChunkStep '%s': Committed chunk of %d items.", s.name, len(items))
	return nil
}

func (s *ChunkStep[I, O]) rollback(ctx context.Context, t tx.Tx, stepExecution *model.StepExecution) {
	if err := s.txManager.Rollback(t); err != nil {
		logger.Errorf("ChunkStep '%s': Failed to roll back chunk: %v", s.name, err)
	}
	stepExecution.RollbackCount++
	s.opts.MetricRecorder.RecordChunkRollback(ctx, stepExecution)
}

// isNil reports whether v is nil or a nil pointer, interface, map, slice, func or channel.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

var _ port.Step = (*ChunkStep[any, any])(nil)
