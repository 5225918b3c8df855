package mocks

import (
	"context"

	"github.com/dukex/qmsflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockRecordStore is a mock implementation of persistence.RecordStore interface.
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) Select(ctx context.Context, table string, filter persistence.Filter) ([]persistence.Record, error) {
	args := m.Called(ctx, table, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]persistence.Record), args.Error(1)
}

func (m *MockRecordStore) Insert(ctx context.Context, table string, row persistence.Record) (persistence.Record, error) {
	args := m.Called(ctx, table, row)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(persistence.Record), args.Error(1)
}

func (m *MockRecordStore) Update(ctx context.Context, table string, patch persistence.Record, filter persistence.Filter) ([]persistence.Record, error) {
	args := m.Called(ctx, table, patch, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]persistence.Record), args.Error(1)
}

func (m *MockRecordStore) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockRecordStore) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
