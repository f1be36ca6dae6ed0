package listener_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/coffeebatch/pkg/batch/test"

	"github.com/tigerroll/coffeebatch/internal/domain/entity"
	"github.com/tigerroll/coffeebatch/internal/listener"
	"github.com/tigerroll/coffeebatch/internal/migration"
)

func finished(status model.JobStatus) *model.JobExecution {
	je := model.NewJobExecution("instance-1", "importCoffeeJob", model.NewJobParameters())
	je.MarkAsStarted()
	if status == model.BatchStatusCompleted {
		je.MarkAsCompleted()
	} else {
		je.MarkAsFailed(errors.New("step failed"))
	}
	return je
}

func TestJobCompletionNotificationListener_ListsStoredCoffees(t *testing.T) {
	db := test.NewSQLiteTestDB(t, migration.CoffeeMigrationsFS())
	ctx := context.Background()
	for _, row := range [][]interface{}{{"ARABICA", "BRAZIL", "FRUITY"}, {"ROBUSTA", "VIETNAM", "EARTHY"}} {
		_, err := db.Conn.ExecuteRaw(ctx, "INSERT INTO coffee (brand, origin, characteristics) VALUES (?, ?, ?)", row...)
		require.NoError(t, err)
	}

	l := listener.NewJobCompletionNotificationListener(db.Resolver)
	var found []entity.Coffee
	l.Found = func(c entity.Coffee) { found = append(found, c) }

	l.AfterJob(ctx, finished(model.BatchStatusFailed))
	assert.Empty(t, found, "failed jobs are not verified")

	l.AfterJob(ctx, finished(model.BatchStatusCompleted))
	require.Len(t, found, 2)
	assert.Equal(t, "ARABICA", found[0].Brand)
	assert.Equal(t, "VIETNAM", found[1].Origin)
}

func TestJobCompletionNotificationListener_ConnectionFailureIsIgnored(t *testing.T) {
	resolver := new(test.MockDBConnectionResolver)
	resolver.On("ResolveDBConnection", mock.Anything, "coffee").Return(nil, errors.New("db down"))

	l := listener.NewJobCompletionNotificationListener(resolver)
	called := false
	l.Found = func(entity.Coffee) { called = true }

	assert.NotPanics(t, func() { l.AfterJob(context.Background(), finished(model.BatchStatusCompleted)) })
	assert.False(t, called)
	resolver.AssertExpectations(t)
}
