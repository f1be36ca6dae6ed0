package item_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	tx "github.com/tigerroll/coffeebatch/pkg/batch/core/tx"
	"github.com/tigerroll/coffeebatch/pkg/batch/engine/step"
	"github.com/tigerroll/coffeebatch/pkg/batch/engine/step/item"
	"github.com/tigerroll/coffeebatch/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/coffeebatch/pkg/batch/test"
)

type record struct {
	N int
}

type sliceReader struct {
	items  []*record
	pos    int
	reads  map[int]int
	opened bool
	closed bool
}

func newSliceReader(n int) *sliceReader {
	r := &sliceReader{reads: make(map[int]int)}
	for i := 1; i <= n; i++ {
		r.items = append(r.items, &record{N: i})
	}
	return r
}

func (r *sliceReader) Open(context.Context) error { r.opened = true; return nil }

func (r *sliceReader) Read(context.Context) (*record, error) {
	if r.pos >= len(r.items) {
		return nil, io.EOF
	}
	it := r.items[r.pos]
	r.pos++
	r.reads[it.N]++
	return it, nil
}

func (r *sliceReader) Close(context.Context) error { r.closed = true; return nil }

type recordingWriter struct {
	committed []int
	chunks    [][]int
	failOn    int // 1-based chunk number whose write fails; 0 never
	failErr   error
	closed    bool
}

func (w *recordingWriter) Open(context.Context) error { return nil }

func (w *recordingWriter) Write(ctx context.Context, t tx.Tx, items []*record) error {
	if _, ok := tx.TxFromContext(ctx); !ok {
		return errors.New("write outside a transaction")
	}
	ft := t.(*fakeTx)
	ns := make([]int, 0, len(items))
	for _, it := range items {
		ns = append(ns, it.N)
	}
	w.chunks = append(w.chunks, ns)
	if w.failOn == len(w.chunks) {
		return w.failErr
	}
	ft.pending = ns
	ft.onCommit = func() { w.committed = append(w.committed, ns...) }
	return nil
}

func (w *recordingWriter) Close(context.Context) error { w.closed = true; return nil }

type fakeTx struct {
	test.MockTx
	pending  []int
	onCommit func()
}

type fakeTxManager struct {
	begins, commits, rollbacks int
}

func (m *fakeTxManager) Begin(context.Context, ...*sql.TxOptions) (tx.Tx, error) {
	m.begins++
	return &fakeTx{}, nil
}

func (m *fakeTxManager) Commit(t tx.Tx) error {
	m.commits++
	if ft := t.(*fakeTx); ft.onCommit != nil {
		ft.onCommit()
	}
	return nil
}

func (m *fakeTxManager) Rollback(tx.Tx) error {
	m.rollbacks++
	return nil
}

// dropMultiplesOf maps records whose number is a multiple of k to nil.
func dropMultiplesOf(k int) port.ItemProcessor[*record, *record] {
	return item.ProcessorFunc[*record, *record](func(_ context.Context, r *record) (*record, error) {
		if k > 0 && r.N%k == 0 {
			return nil, nil
		}
		return r, nil
	})
}

func newStepExecution(t *testing.T, repo *inmemory.InMemoryJobRepository, stepName string) *model.StepExecution {
	t.Helper()
	je, err := repo.ClaimJobExecution(context.Background(), "testJob", test.NewRunParameters(int64(len(t.Name()))))
	require.NoError(t, err)
	se := model.NewStepExecution(je, stepName)
	require.NoError(t, repo.SaveStepExecution(context.Background(), se))
	return se
}

func TestChunkStep_EveryItemReadExactlyOnce(t *testing.T) {
	const total = 23
	for chunkSize := 1; chunkSize <= 12; chunkSize++ {
		t.Run(fmt.Sprintf("chunk=%d", chunkSize), func(t *testing.T) {
			repo := inmemory.NewInMemoryJobRepository()
			reader := newSliceReader(total)
			writer := &recordingWriter{}
			tm := &fakeTxManager{}
			s := item.NewChunkStep[*record, *record]("s", reader, dropMultiplesOf(3), writer, chunkSize, repo, tm)
			se := newStepExecution(t, repo, "s")

			require.NoError(t, s.Execute(context.Background(), se.JobExecution, se))

			dropped := total / 3
			assert.Len(t, reader.reads, total)
			for n, c := range reader.reads {
				assert.Equal(t, 1, c, "record %d", n)
			}
			assert.Equal(t, total, se.ReadCount)
			assert.Equal(t, dropped, se.FilterCount)
			assert.Equal(t, total-dropped, se.WriteCount)
			assert.Len(t, writer.committed, total-dropped)
			for _, chunk := range writer.chunks {
				assert.LessOrEqual(t, len(chunk), chunkSize)
			}
			assert.Equal(t, tm.begins, tm.commits)
			assert.Equal(t, se.CommitCount, tm.commits)
			assert.Zero(t, tm.rollbacks)
			assert.Equal(t, model.BatchStatusCompleted, se.Status)
			assert.True(t, reader.closed)
			assert.True(t, writer.closed)
		})
	}
}

func TestChunkStep_WriteFailureKeepsEarlierChunks(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	reader := newSliceReader(25)
	writer := &recordingWriter{failOn: 2, failErr: exception.NewBatchError("writer", "duplicate", exception.ErrWriteConflict, false, false)}
	tm := &fakeTxManager{}
	s := item.NewChunkStep[*record, *record]("s", reader, item.PassThroughProcessor[*record]{}, writer, 10, repo, tm)
	se := newStepExecution(t, repo, "s")

	err := s.Execute(context.Background(), se.JobExecution, se)
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrWriteConflict)
	assert.Same(t, writer.failErr, err, "writer errors reach the caller unchanged")

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, writer.committed)
	assert.Equal(t, 1, tm.commits)
	assert.Equal(t, 1, tm.rollbacks)
	assert.Equal(t, 1, se.RollbackCount)
	assert.Equal(t, 10, se.WriteCount)
	assert.Equal(t, 20, se.ReadCount, "no chunk is read after the failing one")
	assert.Equal(t, model.BatchStatusFailed, se.Status)
	assert.True(t, reader.closed)
	assert.True(t, writer.closed)

	stored, err := repo.FindJobExecutionByID(context.Background(), se.JobExecutionID)
	require.NoError(t, err)
	require.Len(t, stored.StepExecutions, 1)
	assert.Equal(t, model.BatchStatusFailed, stored.StepExecutions[0].Status)
}

func TestChunkStep_ProcessorErrorSkipsTransaction(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	reader := newSliceReader(5)
	writer := &recordingWriter{}
	tm := &fakeTxManager{}
	failing := item.ProcessorFunc[*record, *record](func(_ context.Context, r *record) (*record, error) {
		if r.N == 4 {
			return nil, exception.NewBatchErrorf("normalize", "record %d has no origin", r.N, exception.ErrNullField)
		}
		return r, nil
	})
	s := item.NewChunkStep[*record, *record]("s", reader, failing, writer, 3, repo, tm)
	se := newStepExecution(t, repo, "s")

	err := s.Execute(context.Background(), se.JobExecution, se)
	assert.ErrorIs(t, err, exception.ErrNullField)
	assert.Equal(t, []int{1, 2, 3}, writer.committed)
	assert.Equal(t, 1, tm.begins, "the failing chunk never opens a transaction")
	assert.Equal(t, model.BatchStatusFailed, se.Status)
}

func TestChunkStep_EmptyInputAndDefaultChunkSize(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	tm := &fakeTxManager{}
	s := item.NewChunkStep[*record, *record]("s", newSliceReader(0), item.PassThroughProcessor[*record]{}, &recordingWriter{}, 0, repo, tm)
	assert.Equal(t, item.DefaultChunkSize, s.ChunkSize())

	se := newStepExecution(t, repo, "s")
	require.NoError(t, s.Execute(context.Background(), se.JobExecution, se))
	assert.Zero(t, tm.begins)
	assert.Zero(t, se.CommitCount)
	assert.Equal(t, model.BatchStatusCompleted, se.Status)
}

type countingChunkListener struct {
	before, after, failed int
}

func (l *countingChunkListener) BeforeChunk(context.Context, *model.StepExecution) { l.before++ }
func (l *countingChunkListener) AfterChunk(context.Context, *model.StepExecution)  { l.after++ }
func (l *countingChunkListener) AfterChunkError(context.Context, *model.StepExecution, error) {
	l.failed++
}

func TestChunkStep_ChunkListeners(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	listener := &countingChunkListener{}
	writer := &recordingWriter{failOn: 3, failErr: exception.ErrStorageUnavailable}
	s := item.NewChunkStep[*record, *record]("s", newSliceReader(9), item.PassThroughProcessor[*record]{}, writer, 3, repo, &fakeTxManager{},
		step.WithChunkListeners(listener))
	se := newStepExecution(t, repo, "s")

	assert.ErrorIs(t, s.Execute(context.Background(), se.JobExecution, se), exception.ErrStorageUnavailable)
	assert.Equal(t, 3, listener.before)
	assert.Equal(t, 2, listener.after)
	assert.Equal(t, 1, listener.failed)
}

func TestChunkStep_CanceledContext(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	se := newStepExecution(t, repo, "s")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := item.NewChunkStep[*record, *record]("s", newSliceReader(3), item.PassThroughProcessor[*record]{}, &recordingWriter{}, 2, repo, &fakeTxManager{})
	err := s.Execute(ctx, se.JobExecution, se)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, model.BatchStatusFailed, se.Status)
}

// contextBoundRepository refuses updates on a done context, as a database-backed repository does.
type contextBoundRepository struct {
	*inmemory.InMemoryJobRepository
	recorded []model.JobStatus
}

func (r *contextBoundRepository) UpdateStepExecution(ctx context.Context, se *model.StepExecution) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.recorded = append(r.recorded, se.Status)
	return r.InMemoryJobRepository.UpdateStepExecution(ctx, se)
}

type cancelingReader struct {
	*sliceReader
	cancel context.CancelFunc
}

func (r *cancelingReader) Read(ctx context.Context) (*record, error) {
	if r.pos == 1 {
		r.cancel()
	}
	return r.sliceReader.Read(ctx)
}

func TestChunkStep_CanceledMidRunStillRecordsFailure(t *testing.T) {
	repo := &contextBoundRepository{InMemoryJobRepository: inmemory.NewInMemoryJobRepository()}
	se := newStepExecution(t, repo.InMemoryJobRepository, "s")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &cancelingReader{sliceReader: newSliceReader(4), cancel: cancel}
	s := item.NewChunkStep[*record, *record]("s", r, item.PassThroughProcessor[*record]{}, &recordingWriter{}, 1, repo, &fakeTxManager{})
	err := s.Execute(ctx, se.JobExecution, se)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []model.JobStatus{model.BatchStatusStarted, model.BatchStatusFailed}, repo.recorded)
}
