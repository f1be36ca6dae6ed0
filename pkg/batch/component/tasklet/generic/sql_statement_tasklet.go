// Package generic provides reusable tasklets.
package generic

import (
	"context"
	"fmt"

	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database"
	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	exception "github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// SqlStatementTasklet is a [port.Tasklet] that runs one SQL statement directly on a connection
// and logs the number of affected rows. The statement autocommits: it either runs completely or
// not at all.
type SqlStatementTasklet struct {
	name      string
	resolver  database.DBConnectionResolver
	dbName    string
	statement string
	args      []interface{}
}

// NewSqlStatementTasklet creates a tasklet running statement with args on the connection dbName.
func NewSqlStatementTasklet(name string, resolver database.DBConnectionResolver, dbName string, statement string, args ...interface{}) *SqlStatementTasklet {
	return &SqlStatementTasklet{
		name:      name,
		resolver:  resolver,
		dbName:    dbName,
		statement: statement,
		args:      args,
	}
}

// Execute runs the statement. The affected row count is recorded as the step's write count.
func (t *SqlStatementTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	conn, err := t.resolver.ResolveDBConnection(ctx, t.dbName)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(t.name,
			fmt.Sprintf("failed to resolve database connection '%s'", t.dbName),
			database.ClassifyError(err), false, true)
	}

	affected, err := conn.ExecuteRaw(ctx, t.statement, t.args...)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(t.name, "failed to execute statement", err, false, false)
	}

	if stepExecution != nil {
		stepExecution.WriteCount += int(affected)
	}
	logger.Infof("Tasklet '%s': %d row(s) affected.", t.name, affected)
	return model.ExitStatusCompleted, nil
}

// Close releases nothing; the connection is owned by the resolver.
func (t *SqlStatementTasklet) Close(ctx context.Context) error {
	return nil
}

var _ port.Tasklet = (*SqlStatementTasklet)(nil)
