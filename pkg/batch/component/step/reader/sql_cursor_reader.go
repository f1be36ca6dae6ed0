package reader

import (
	"context"
	"fmt"

	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database"
	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	exception "github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// DefaultPageSize is the number of rows fetched per query when no page size is given.
const DefaultPageSize = 100

// SqlCursorReader is an ItemReader over the rows of T's table matching a fixed condition.
// Rows are fetched page by page, ordered by an increasing integer key, resuming after the last
// key seen. Rows updated between pages are never visited twice, and no connection or transaction
// is held between reads.
type SqlCursorReader[T any] struct {
	name      string
	resolver  database.DBConnectionResolver
	dbName    string
	condition string
	args      []interface{}
	keyColumn string
	keyOf     func(T) int64
	pageSize  int

	conn      database.DBConnection
	page      []T
	pos       int
	lastKey   int64
	exhausted bool
}

// NewSqlCursorReader creates a reader for the rows matching condition (raw SQL with positional
// args; empty matches every row). keyColumn names the integer key and keyOf extracts it from an item.
func NewSqlCursorReader[T any](
	name string,
	resolver database.DBConnectionResolver,
	dbName string,
	condition string,
	args []interface{},
	keyColumn string,
	keyOf func(T) int64,
	pageSize int,
) *SqlCursorReader[T] {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &SqlCursorReader[T]{
		name:      name,
		resolver:  resolver,
		dbName:    dbName,
		condition: condition,
		args:      args,
		keyColumn: keyColumn,
		keyOf:     keyOf,
		pageSize:  pageSize,
	}
}

// Open resolves the connection and positions the cursor before the first row.
func (r *SqlCursorReader[T]) Open(ctx context.Context) error {
	conn, err := r.resolver.ResolveDBConnection(ctx, r.dbName)
	if err != nil {
		return exception.NewBatchError("sql_cursor_reader",
			fmt.Sprintf("SqlCursorReader '%s': failed to resolve database connection '%s'", r.name, r.dbName),
			database.ClassifyError(err), false, true)
	}
	r.conn = conn
	r.page = nil
	r.pos = 0
	r.lastKey = 0
	r.exhausted = false
	logger.Infof("SqlCursorReader '%s': Starting new read on '%s' (condition: %q).", r.name, r.dbName, r.condition)
	return nil
}

// Read returns the next row, or io.EOF once no row remains.
func (r *SqlCursorReader[T]) Read(ctx context.Context) (T, error) {
	var zero T
	if r.conn == nil {
		return zero, exception.NewBatchErrorf("sql_cursor_reader", "SqlCursorReader '%s': reader not opened or already closed", r.name)
	}

	if r.pos >= len(r.page) {
		if r.exhausted {
			return zero, port.ErrNoMoreItems
		}
		if err := r.fetch(ctx); err != nil {
			return zero, err
		}
		if len(r.page) == 0 {
			return zero, port.ErrNoMoreItems
		}
	}

	item := r.page[r.pos]
	r.pos++
	r.lastKey = r.keyOf(item)
	return item, nil
}

func (r *SqlCursorReader[T]) fetch(ctx context.Context) error {
	condition := fmt.Sprintf("%s > ?", r.keyColumn)
	args := []interface{}{r.lastKey}
	if r.condition != "" {
		condition = fmt.Sprintf("(%s) AND %s", r.condition, condition)
		args = append(append(make([]interface{}, 0, len(r.args)+1), r.args...), r.lastKey)
	}

	var page []T
	if err := r.conn.ExecuteQueryWhere(ctx, &page, condition, args, r.keyColumn+" ASC", r.pageSize); err != nil {
		return exception.NewBatchError("sql_cursor_reader",
			fmt.Sprintf("SqlCursorReader '%s': failed to fetch rows after %s %d", r.name, r.keyColumn, r.lastKey),
			err, false, true)
	}
	logger.Debugf("SqlCursorReader '%s': Fetched %d row(s) after %s %d.", r.name, len(page), r.keyColumn, r.lastKey)

	r.page = page
	r.pos = 0
	r.exhausted = len(page) < r.pageSize
	return nil
}

// Close drops the page buffer. The pooled connection is owned by the resolver and stays open.
func (r *SqlCursorReader[T]) Close(ctx context.Context) error {
	r.conn = nil
	r.page = nil
	logger.Debugf("SqlCursorReader '%s': Closed.", r.name)
	return nil
}

var _ port.ItemReader[any] = (*SqlCursorReader[any])(nil)
