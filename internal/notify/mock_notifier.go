package notify

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockNotifier is a testify mock of Notifier.
type MockNotifier struct {
	mock.Mock
}

// Notify records the call.
func (m *MockNotifier) Notify(ctx context.Context, ev Event) (string, error) {
	args := m.Called(ctx, ev)
	return args.String(0), args.Error(1)
}

// Close records the call.
func (m *MockNotifier) Close() error {
	args := m.Called()
	return args.Error(0)
}
