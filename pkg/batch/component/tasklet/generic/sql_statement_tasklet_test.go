package generic_test

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/coffeebatch/pkg/batch/component/tasklet/generic"
	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/coffeebatch/pkg/batch/test"
)

var leafMigrations = fstest.MapFS{
	"sqlite/000001_create_leaf.up.sql":   {Data: []byte("CREATE TABLE leaf (id INTEGER PRIMARY KEY AUTOINCREMENT, kind TEXT);")},
	"sqlite/000001_create_leaf.down.sql": {Data: []byte("DROP TABLE leaf;")},
}

func newStepExecution() *model.StepExecution {
	je := test.NewStartedJobExecution("cleanupJob", test.NewRunParameters(1))
	return model.NewStepExecution(je, "cleanupStep")
}

func TestSqlStatementTasklet_DeletesMatchingRows(t *testing.T) {
	db := test.NewSQLiteTestDB(t, leafMigrations)
	ctx := context.Background()
	_, err := db.Conn.ExecuteRaw(ctx, "INSERT INTO leaf (kind) VALUES ('tea'), ('coffee'), ('tea')")
	require.NoError(t, err)

	tasklet := generic.NewSqlStatementTasklet("deleteTea", db.Resolver, "coffee", "DELETE FROM leaf WHERE kind = ?", "tea")
	se := newStepExecution()
	status, err := tasklet.Execute(ctx, se)
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, status)
	assert.Equal(t, 2, se.WriteCount)

	status, err = tasklet.Execute(ctx, newStepExecution())
	require.NoError(t, err, "running again with nothing to delete succeeds")
	assert.Equal(t, model.ExitStatusCompleted, status)
	assert.NoError(t, tasklet.Close(ctx))
}

func TestSqlStatementTasklet_StorageUnavailable(t *testing.T) {
	conn, sqlMock := test.NewSQLMockConnection(t)
	sqlMock.ExpectExec("DELETE FROM leaf").WillReturnError(errors.New("driver: bad connection"))

	tasklet := generic.NewSqlStatementTasklet("deleteTea", test.NewTestSingleConnectionResolver(conn), "coffee", "DELETE FROM leaf WHERE kind = 'tea'")
	status, err := tasklet.Execute(context.Background(), newStepExecution())
	assert.Equal(t, model.ExitStatusFailed, status)
	assert.ErrorIs(t, err, exception.ErrStorageUnavailable)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestSqlStatementTasklet_ResolveFailure(t *testing.T) {
	resolver := &test.MockDBConnectionResolver{}
	resolver.On("ResolveDBConnection", mock.Anything, "coffee").Return(nil, errors.New("dial tcp: connection refused"))

	tasklet := generic.NewSqlStatementTasklet("deleteTea", resolver, "coffee", "DELETE FROM leaf")
	_, err := tasklet.Execute(context.Background(), newStepExecution())
	assert.ErrorIs(t, err, exception.ErrStorageUnavailable)
}
