// Package writer provides the item writers used by chunk-oriented steps. SQL writers run inside
// the chunk transaction they are handed; the Parquet writer buffers the run and publishes one
// file per partition to object storage.
package writer

import (
	"context"
	"fmt"

	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	"github.com/tigerroll/coffeebatch/pkg/batch/core/tx"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

func requireTx(name string, t tx.Tx) error {
	if t == nil {
		return exception.NewBatchErrorf("writer", "SQL writer '%s' requires a transaction", name)
	}
	return nil
}

// SqlInsertWriter inserts every item of a chunk into a table, one statement per item. Storage
// assigns generated keys, which are written back into the items.
type SqlInsertWriter[T any] struct {
	name      string
	tableName string
}

// NewSqlInsertWriter creates an insert writer. An empty tableName uses the table of T.
func NewSqlInsertWriter[T any](name string, tableName string) *SqlInsertWriter[T] {
	return &SqlInsertWriter[T]{name: name, tableName: tableName}
}

func (w *SqlInsertWriter[T]) Open(ctx context.Context) error {
	logger.Debugf("SqlInsertWriter '%s': Opened.", w.name)
	return nil
}

// Write inserts items through t. The first failure aborts the chunk; the caller rolls t back.
func (w *SqlInsertWriter[T]) Write(ctx context.Context, t tx.Tx, items []T) error {
	if len(items) == 0 {
		return nil
	}
	if err := requireTx(w.name, t); err != nil {
		return err
	}
	for i, item := range items {
		if _, err := t.ExecuteUpdate(ctx, item, tx.OperationCreate, w.tableName, nil); err != nil {
			return exception.NewBatchError("writer",
				fmt.Sprintf("SqlInsertWriter '%s': failed to insert item %d of %d", w.name, i+1, len(items)),
				err, false, false)
		}
	}
	logger.Debugf("SqlInsertWriter '%s': Inserted %d items.", w.name, len(items))
	return nil
}

func (w *SqlInsertWriter[T]) Close(ctx context.Context) error {
	return nil
}

// UpdateFunc returns the key value of item and the columns to set.
type UpdateFunc[T any] func(item T) (key interface{}, values map[string]interface{})

// SqlUpdateWriter updates one row per item, matched on keyColumn.
type SqlUpdateWriter[T any] struct {
	name      string
	tableName string
	keyColumn string
	update    UpdateFunc[T]
}

// NewSqlUpdateWriter creates an update writer.
func NewSqlUpdateWriter[T any](name string, tableName string, keyColumn string, update UpdateFunc[T]) *SqlUpdateWriter[T] {
	return &SqlUpdateWriter[T]{
		name:      name,
		tableName: tableName,
		keyColumn: keyColumn,
		update:    update,
	}
}

func (w *SqlUpdateWriter[T]) Open(ctx context.Context) error {
	logger.Debugf("SqlUpdateWriter '%s': Opened.", w.name)
	return nil
}

// Write updates items through t. A row that no longer exists is logged and skipped.
func (w *SqlUpdateWriter[T]) Write(ctx context.Context, t tx.Tx, items []T) error {
	if len(items) == 0 {
		return nil
	}
	if err := requireTx(w.name, t); err != nil {
		return err
	}
	var updated int64
	for _, item := range items {
		key, values := w.update(item)
		n, err := t.ExecuteUpdate(ctx, values, tx.OperationUpdate, w.tableName, map[string]interface{}{w.keyColumn: key})
		if err != nil {
			return exception.NewBatchError("writer",
				fmt.Sprintf("SqlUpdateWriter '%s': failed to update %s %s=%v", w.name, w.tableName, w.keyColumn, key),
				err, false, false)
		}
		if n == 0 {
			logger.Warnf("SqlUpdateWriter '%s': no row in %s with %s=%v.", w.name, w.tableName, w.keyColumn, key)
		}
		updated += n
	}
	logger.Debugf("SqlUpdateWriter '%s': Updated %d of %d rows.", w.name, updated, len(items))
	return nil
}

func (w *SqlUpdateWriter[T]) Close(ctx context.Context) error {
	return nil
}

var (
	_ port.ItemWriter[any] = (*SqlInsertWriter[any])(nil)
	_ port.ItemWriter[any] = (*SqlUpdateWriter[any])(nil)
)
