package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock implementation of core.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendPasswordReset(ctx context.Context, to, token string) error {
	return m.Called(ctx, to, token).Error(0)
}

func (m *MockNotifier) SendWelcome(ctx context.Context, to, name string) error {
	return m.Called(ctx, to, name).Error(0)
}
