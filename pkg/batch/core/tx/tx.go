// Package tx abstracts transaction management for the batch core.
// A chunk is written through a Tx obtained from a TransactionManager, and committed or rolled back as one unit.
package tx

import (
	"context"
	"database/sql"
)

// Write operations accepted by TxExecutor.ExecuteUpdate.
const (
	OperationCreate = "CREATE"
	OperationUpdate = "UPDATE"
	OperationDelete = "DELETE"
)

// TxExecutor runs write operations, inside a transaction or directly on a connection.
type TxExecutor interface {
	// ExecuteUpdate writes model to tableName.
	// operation is one of OperationCreate, OperationUpdate or OperationDelete. For UPDATE and DELETE,
	// query holds the equality conditions (ANDed) and, for UPDATE, model is a column-to-value map or an entity.
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)
	// ExecuteUpsert inserts model into tableName. On a conflict on conflictColumns the existing row
	// keeps its values unless updateColumns names columns to overwrite. rowsAffected is 0 when the
	// row already existed and nothing was updated.
	ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error)
	// ExecuteRaw runs a single statement and returns the affected row count.
	ExecuteRaw(ctx context.Context, statement string, args ...interface{}) (rowsAffected int64, err error)
}

// Tx is an open transaction.
type Tx interface {
	TxExecutor
}

// TransactionManager controls the lifecycle of transactions on one connection.
type TransactionManager interface {
	// Begin opens a transaction.
	Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error)
	// Commit commits tx.
	Commit(tx Tx) error
	// Rollback rolls back tx.
	Rollback(tx Tx) error
}

type txKey struct{}

// WithTx returns a context carrying tx.
func WithTx(ctx context.Context, t Tx) context.Context {
	return context.WithValue(ctx, txKey{}, t)
}

// TxFromContext returns the transaction stored by WithTx.
func TxFromContext(ctx context.Context) (Tx, bool) {
	t, ok := ctx.Value(txKey{}).(Tx)
	return t, ok && t != nil
}
