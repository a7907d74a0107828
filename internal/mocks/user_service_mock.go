package mocks

import (
	"account-service/internal/models"
	"context"

	"github.com/stretchr/testify/mock"
)

// MockUserService is a mock implementation of core.UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, in models.NewUserInput) (*models.PublicUser, error) {
	return publicResult(m.Called(ctx, in))
}

func (m *MockUserService) CreateUser(ctx context.Context, in models.NewUserInput) (*models.PublicUser, error) {
	return publicResult(m.Called(ctx, in))
}

func (m *MockUserService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LoginResponse), args.Error(1)
}

func (m *MockUserService) RequestPasswordReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockUserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	return m.Called(ctx, token, newPassword).Error(0)
}

func (m *MockUserService) GetUserByID(ctx context.Context, id string) (*models.PublicUser, error) {
	return publicResult(m.Called(ctx, id))
}

func (m *MockUserService) UpdateUser(ctx context.Context, id string, in models.UpdateInput) (*models.PublicUser, error) {
	return publicResult(m.Called(ctx, id, in))
}

func (m *MockUserService) DeleteUser(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserService) GetUsersPaginated(ctx context.Context, page, limit int, search string) (*models.PaginatedUsers, error) {
	args := m.Called(ctx, page, limit, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaginatedUsers), args.Error(1)
}

func publicResult(args mock.Arguments) (*models.PublicUser, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PublicUser), args.Error(1)
}
