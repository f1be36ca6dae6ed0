package database_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"sqlite unique", errors.New("UNIQUE constraint failed: coffee.id"), exception.ErrWriteConflict},
		{"mysql duplicate", errors.New("Error 1062 (23000): Duplicate entry '1' for key 'PRIMARY'"), exception.ErrWriteConflict},
		{"postgres duplicate", errors.New(`ERROR: duplicate key value violates unique constraint "coffee_pkey"`), exception.ErrWriteConflict},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), exception.ErrStorageUnavailable},
		{"closed pool", errors.New("sql: database is closed"), exception.ErrStorageUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := database.ClassifyError(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err, "the driver error stays in the chain")
		})
	}
}

func TestClassifyError_PassThrough(t *testing.T) {
	assert.NoError(t, database.ClassifyError(nil))

	canceled := fmt.Errorf("query: %w", context.Canceled)
	assert.Same(t, canceled, database.ClassifyError(canceled))

	classified := database.ClassifyError(errors.New("no such host"))
	assert.Equal(t, classified, database.ClassifyError(classified))
	assert.NotErrorIs(t, classified, exception.ErrWriteConflict)
}
