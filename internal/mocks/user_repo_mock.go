package mocks

import (
	"account-service/internal/models"
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of core.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return userResult(m.Called(ctx, id))
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return userResult(m.Called(ctx, email))
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return userResult(m.Called(ctx, username))
}

func (m *MockUserRepository) Update(ctx context.Context, id string, update models.UserUpdate) (*models.User, error) {
	return userResult(m.Called(ctx, id, update))
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, q models.ListQuery) ([]models.User, int64, error) {
	args := m.Called(ctx, q)
	var users []models.User
	if v := args.Get(0); v != nil {
		users = v.([]models.User)
	}
	return users, args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) SetResetToken(ctx context.Context, id, tokenDigest string, expiry time.Time) error {
	return m.Called(ctx, id, tokenDigest, expiry).Error(0)
}

func (m *MockUserRepository) GetByResetToken(ctx context.Context, tokenDigest string) (*models.User, error) {
	return userResult(m.Called(ctx, tokenDigest))
}

func (m *MockUserRepository) ResetPassword(ctx context.Context, id, tokenDigest, passwordHash string) error {
	return m.Called(ctx, id, tokenDigest, passwordHash).Error(0)
}

func (m *MockUserRepository) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func userResult(args mock.Arguments) (*models.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
