package store

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/JakeFAU/hn-dataset-sync/internal/dataset"
)

// MockProvider is a mock implementation of the Provider interface for testing.
type MockProvider struct {
	mock.Mock
}

// Load is the mock implementation of the Load method.
func (m *MockProvider) Load(ctx context.Context) (dataset.Snapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(dataset.Snapshot), args.Error(1) //nolint:wrapcheck
}

// Publish is the mock implementation of the Publish method.
func (m *MockProvider) Publish(ctx context.Context, snap dataset.Snapshot, message string) error {
	args := m.Called(ctx, snap, message)
	return args.Error(0) //nolint:wrapcheck
}

// URI is the mock implementation of the URI method.
func (m *MockProvider) URI() string {
	args := m.Called()
	return args.String(0)
}

// Close is the mock implementation of the Close method.
func (m *MockProvider) Close() error {
	args := m.Called()
	return args.Error(0) //nolint:wrapcheck
}
