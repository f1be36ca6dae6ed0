package test

import (
	"context"

	"github.com/stretchr/testify/mock"

	dbadapter "github.com/tigerroll/coffeebatch/pkg/batch/adapter/database"
)

// MockDBConnectionResolver is a mock implementation of the database.DBConnectionResolver interface.
type MockDBConnectionResolver struct {
	mock.Mock
}

// ResolveDBConnection mocks the ResolveDBConnection method.
func (m *MockDBConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (dbadapter.DBConnection, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(dbadapter.DBConnection), args.Error(1)
}

// testSingleConnectionResolver always returns one predefined connection.
type testSingleConnectionResolver struct {
	conn dbadapter.DBConnection
}

func (r *testSingleConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (dbadapter.DBConnection, error) {
	return r.conn, nil
}

// NewTestSingleConnectionResolver returns a resolver that always yields conn, whatever the name.
func NewTestSingleConnectionResolver(conn dbadapter.DBConnection) dbadapter.DBConnectionResolver {
	return &testSingleConnectionResolver{conn: conn}
}

var (
	_ dbadapter.DBConnectionResolver = (*testSingleConnectionResolver)(nil)
	_ dbadapter.DBConnectionResolver = (*MockDBConnectionResolver)(nil)
)
