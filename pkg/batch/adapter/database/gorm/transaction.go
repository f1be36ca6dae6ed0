package gorm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database"
	tx "github.com/tigerroll/coffeebatch/pkg/batch/core/tx"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// GormTxAdapter implements tx.Tx on an open GORM transaction.
type GormTxAdapter struct {
	db *gorm.DB
}

// ExecuteUpdate implements tx.TxExecutor.
func (t *GormTxAdapter) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	return executeUpdate(t.db.WithContext(ctx), model, operation, tableName, query)
}

// ExecuteUpsert implements tx.TxExecutor.
func (t *GormTxAdapter) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	return executeUpsert(t.db.WithContext(ctx), model, tableName, conflictColumns, updateColumns)
}

// ExecuteRaw implements tx.TxExecutor.
func (t *GormTxAdapter) ExecuteRaw(ctx context.Context, statement string, args ...interface{}) (int64, error) {
	return executeRaw(t.db.WithContext(ctx), statement, args...)
}

// GormTransactionManager implements tx.TransactionManager for one named connection.
// The connection is resolved on every Begin so a reconnect is picked up.
type GormTransactionManager struct {
	dbResolver database.DBConnectionResolver
	dbName     string
}

// NewGormTransactionManager creates a transaction manager for connection dbName.
func NewGormTransactionManager(dbResolver database.DBConnectionResolver, dbName string) *GormTransactionManager {
	return &GormTransactionManager{dbResolver: dbResolver, dbName: dbName}
}

// Begin implements tx.TransactionManager.
func (m *GormTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	conn, err := m.dbResolver.ResolveDBConnection(ctx, m.dbName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve DB connection '%s' for transaction: %w", m.dbName, err)
	}
	adapter, ok := conn.(*GormDBAdapter)
	if !ok {
		return nil, fmt.Errorf("connection '%s' is a %T, not a GORM connection", m.dbName, conn)
	}

	var txOpts *sql.TxOptions
	if len(opts) > 0 {
		txOpts = opts[0]
	}

	gormTx := adapter.GormDB().WithContext(ctx).Begin(txOpts)
	if gormTx.Error != nil {
		return nil, database.ClassifyError(fmt.Errorf("failed to begin transaction on '%s': %w", m.dbName, gormTx.Error))
	}
	logger.Debugf("Transaction started on '%s'.", m.dbName)
	return &GormTxAdapter{db: gormTx}, nil
}

// Commit implements tx.TransactionManager.
func (m *GormTransactionManager) Commit(t tx.Tx) error {
	adapter, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type %T for GORM commit", t)
	}
	if err := adapter.db.Commit().Error; err != nil {
		return database.ClassifyError(fmt.Errorf("failed to commit transaction on '%s': %w", m.dbName, err))
	}
	logger.Debugf("Transaction committed on '%s'.", m.dbName)
	return nil
}

// Rollback implements tx.TransactionManager. Rolling back a finished transaction is not an error.
func (m *GormTransactionManager) Rollback(t tx.Tx) error {
	adapter, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type %T for GORM rollback", t)
	}
	if err := adapter.db.Rollback().Error; err != nil && !errors.Is(err, sql.ErrTxDone) {
		return database.ClassifyError(fmt.Errorf("failed to roll back transaction on '%s': %w", m.dbName, err))
	}
	logger.Debugf("Transaction rolled back on '%s'.", m.dbName)
	return nil
}

// Verify interface compliance at compile time.
var (
	_ tx.Tx                 = (*GormTxAdapter)(nil)
	_ tx.TransactionManager = (*GormTransactionManager)(nil)
)
