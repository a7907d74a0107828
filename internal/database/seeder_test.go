package database

import (
	"context"
	"testing"

	"account-service/internal/config"
	"account-service/internal/mocks"
	"account-service/internal/models"
	"account-service/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

func seedApp(env string) (*config.Application, *mocks.MockUserRepository, *mocks.MockUserService) {
	repo := new(mocks.MockUserRepository)
	users := new(mocks.MockUserService)
	return &config.Application{
		Config: config.Config{
			AppEnv:               env,
			DefaultAdminEmail:    "admin@example.com",
			DefaultAdminUsername: "admin",
			DefaultAdminPassword: "admin123!",
		},
		Logger: zerolog.Nop(),
		Store:  repo,
		Users:  users,
	}, repo, users
}

func TestSeedDefaultAdmin(t *testing.T) {
	t.Run("CreatesAdmin", func(t *testing.T) {
		app, repo, users := seedApp("development")
		repo.On("GetByEmail", mock.Anything, "admin@example.com").Return(nil, repository.ErrNotFound).Once()
		users.On("CreateUser", mock.Anything, models.NewUserInput{
			Email:    "admin@example.com",
			Username: "admin",
			Password: "admin123!",
			Role:     models.RoleAdmin,
		}).Return(&models.PublicUser{ID: "1", Username: "admin", Role: models.RoleAdmin}, nil).Once()

		SeedDefaultAdmin(context.Background(), app)

		repo.AssertExpectations(t)
		users.AssertExpectations(t)
	})

	t.Run("AlreadyExists", func(t *testing.T) {
		app, repo, users := seedApp("development")
		repo.On("GetByEmail", mock.Anything, "admin@example.com").Return(&models.User{ID: "1"}, nil).Once()

		SeedDefaultAdmin(context.Background(), app)

		users.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("SkippedOutsideDevelopment", func(t *testing.T) {
		app, repo, users := seedApp("production")

		SeedDefaultAdmin(context.Background(), app)

		repo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
		users.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})
}
