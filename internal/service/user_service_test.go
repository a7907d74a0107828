package service

import (
	"account-service/internal/apperror"
	"account-service/internal/auth"
	"account-service/internal/mocks"
	"account-service/internal/models"
	"account-service/internal/repository"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	repo     *mocks.MockUserRepository
	notifier *mocks.MockNotifier
	hasher   *auth.BcryptHasher
	tokens   *auth.TokenIssuer
	svc      *UserService
}

func newFixture() *fixture {
	f := &fixture{
		repo:     new(mocks.MockUserRepository),
		notifier: new(mocks.MockNotifier),
		hasher:   auth.NewBcryptHasher(bcrypt.MinCost),
		tokens:   auth.NewTokenIssuer("test-secret-that-is-long-enough!!", 30*24*time.Hour, "account-service"),
	}
	f.svc = NewUserService(f.repo, f.hasher, f.tokens, f.notifier, zerolog.Nop(), Options{})
	return f
}

func requireAppError(t *testing.T, err error, status int, message string) {
	t.Helper()
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, status, appErr.Status)
	assert.Equal(t, message, appErr.Message)
}

func aliceInput() models.NewUserInput {
	return models.NewUserInput{
		FirstName: "Alice",
		Email:     "a@x.com",
		Username:  "alice",
		Password:  "secret1",
		Role:      models.RoleAdmin,
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, repository.ErrNotFound).Once()
		f.repo.On("GetByUsername", mock.Anything, "alice").Return(nil, repository.ErrNotFound).Once()

		var stored *models.User
		f.repo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).
			Run(func(args mock.Arguments) {
				stored = args.Get(1).(*models.User)
				stored.ID = "665f1c2e9b1d4a0001a1b2c3"
			}).
			Return(nil).Once()
		f.notifier.On("SendWelcome", mock.Anything, "a@x.com", "Alice").Return(nil).Once()

		user, err := f.svc.Register(ctx, aliceInput())
		require.NoError(t, err)

		assert.Equal(t, "665f1c2e9b1d4a0001a1b2c3", user.ID)
		assert.Equal(t, models.RoleUser, user.Role, "self-registration never grants admin")
		require.NotNil(t, stored)
		assert.NotEqual(t, "secret1", stored.PasswordHash)
		assert.True(t, f.hasher.Verify("secret1", stored.PasswordHash))

		f.repo.AssertExpectations(t)
		f.notifier.AssertExpectations(t)
	})

	t.Run("WelcomeFailureIsIgnored", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, repository.ErrNotFound)
		f.repo.On("GetByUsername", mock.Anything, "alice").Return(nil, repository.ErrNotFound)
		f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.notifier.On("SendWelcome", mock.Anything, "a@x.com", "Alice").Return(errors.New("queue full"))

		user, err := f.svc.Register(ctx, aliceInput())
		require.NoError(t, err)
		assert.NotNil(t, user)
	})

	t.Run("WelcomeFallsBackToUsername", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, repository.ErrNotFound)
		f.repo.On("GetByUsername", mock.Anything, "alice").Return(nil, repository.ErrNotFound)
		f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.notifier.On("SendWelcome", mock.Anything, "a@x.com", "alice").Return(nil).Once()

		in := aliceInput()
		in.FirstName = ""
		_, err := f.svc.Register(ctx, in)
		require.NoError(t, err)
		f.notifier.AssertExpectations(t)
	})

	t.Run("Fail_EmailTaken", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByEmail", mock.Anything, "a@x.com").Return(&models.User{ID: "1"}, nil).Once()

		user, err := f.svc.Register(ctx, aliceInput())
		assert.Nil(t, user)
		requireAppError(t, err, http.StatusForbidden, "Email already in use")

		f.repo.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.notifier.AssertNotCalled(t, "SendWelcome", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Fail_UsernameTaken", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, repository.ErrNotFound).Once()
		f.repo.On("GetByUsername", mock.Anything, "alice").Return(&models.User{ID: "1"}, nil).Once()

		_, err := f.svc.Register(ctx, aliceInput())
		requireAppError(t, err, http.StatusForbidden, "Username already in use")
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Fail_RacingDuplicate", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, repository.ErrNotFound)
		f.repo.On("GetByUsername", mock.Anything, "alice").Return(nil, repository.ErrNotFound)
		f.repo.On("Create", mock.Anything, mock.Anything).
			Return(&repository.DuplicateKeyError{Field: "username", Err: errors.New("E11000")})

		_, err := f.svc.Register(ctx, aliceInput())
		requireAppError(t, err, http.StatusForbidden, "Username already in use")
	})
}

func TestCreateUserKeepsAdminRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.repo.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, repository.ErrNotFound)
	f.repo.On("GetByUsername", mock.Anything, "alice").Return(nil, repository.ErrNotFound)
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Role == models.RoleAdmin
	})).Return(nil).Once()

	user, err := f.svc.CreateUser(ctx, aliceInput())
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	f.repo.AssertExpectations(t)
	f.notifier.AssertNotCalled(t, "SendWelcome", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	hash, err := f.hasher.Hash("secret1")
	require.NoError(t, err)
	stored := &models.User{ID: "u1", Email: "a@x.com", Username: "alice", PasswordHash: hash, Role: models.RoleUser}

	t.Run("Success", func(t *testing.T) {
		f.repo.On("GetByEmail", mock.Anything, "a@x.com").Return(stored, nil).Once()

		resp, err := f.svc.Login(ctx, models.LoginRequest{Email: "a@x.com", Password: "secret1"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "u1", resp.User.ID)

		claims, err := f.tokens.Verify(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.ID)
		assert.Equal(t, "alice", claims.Username)
		assert.False(t, claims.IsAdmin())
	})

	t.Run("WrongPassword", func(t *testing.T) {
		f.repo.On("GetByEmail", mock.Anything, "a@x.com").Return(stored, nil).Once()

		resp, err := f.svc.Login(ctx, models.LoginRequest{Email: "a@x.com", Password: "nope"})
		assert.Nil(t, resp)
		requireAppError(t, err, http.StatusUnauthorized, "Invalid credentials")
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		f.repo.On("GetByEmail", mock.Anything, "ghost@x.com").Return(nil, repository.ErrNotFound).Once()

		_, err := f.svc.Login(ctx, models.LoginRequest{Email: "ghost@x.com", Password: "secret1"})
		requireAppError(t, err, http.StatusNotFound, "User not found")
	})

	t.Run("StoreFailure", func(t *testing.T) {
		f.repo.On("GetByEmail", mock.Anything, "boom@x.com").Return(nil, errors.New("connection refused")).Once()

		_, err := f.svc.Login(ctx, models.LoginRequest{Email: "boom@x.com", Password: "secret1"})
		requireAppError(t, err, http.StatusInternalServerError, "Internal Server Error")
	})
}

func TestGetUserByID(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.repo.On("GetByID", mock.Anything, "u1").Return(&models.User{ID: "u1", PasswordHash: "hash"}, nil).Once()
	f.repo.On("GetByID", mock.Anything, "not-an-id").Return(nil, repository.ErrNotFound).Once()

	user, err := f.svc.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	_, err = f.svc.GetUserByID(ctx, "not-an-id")
	requireAppError(t, err, http.StatusNotFound, "User not found")
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("HashesPassword", func(t *testing.T) {
		f := newFixture()
		newName := "Alicia"
		password := "another1"

		f.repo.On("Update", mock.Anything, "u1", mock.MatchedBy(func(u models.UserUpdate) bool {
			return u.FirstName != nil && *u.FirstName == "Alicia" &&
				u.PasswordHash != nil && *u.PasswordHash != password &&
				f.hasher.Verify(password, *u.PasswordHash) &&
				u.Email == nil && u.Role == nil
		})).Return(&models.User{ID: "u1", FirstName: "Alicia"}, nil).Once()

		user, err := f.svc.UpdateUser(ctx, "u1", models.UpdateInput{FirstName: &newName, Password: &password})
		require.NoError(t, err)
		assert.Equal(t, "Alicia", user.FirstName)
		f.repo.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		f := newFixture()
		f.repo.On("Update", mock.Anything, "missing", models.UserUpdate{}).Return(nil, repository.ErrNotFound).Once()

		_, err := f.svc.UpdateUser(ctx, "missing", models.UpdateInput{})
		requireAppError(t, err, http.StatusNotFound, "User not found")
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		f := newFixture()
		email := "b@x.com"
		f.repo.On("Update", mock.Anything, "u1", mock.Anything).
			Return(nil, &repository.DuplicateKeyError{Field: "email"}).Once()

		_, err := f.svc.UpdateUser(ctx, "u1", models.UpdateInput{Email: &email})
		requireAppError(t, err, http.StatusForbidden, "Email already in use")
	})
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.repo.On("Delete", mock.Anything, "u1").Return(nil).Once()
	f.repo.On("Delete", mock.Anything, "u2").Return(repository.ErrNotFound).Once()

	assert.NoError(t, f.svc.DeleteUser(ctx, "u1"))
	requireAppError(t, f.svc.DeleteUser(ctx, "u2"), http.StatusNotFound, "User not found")
}

func TestGetUsersPaginated(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name                  string
		page, limit           int
		total                 int64
		wantPage, wantLimit   int
		wantOffset, wantPages int
	}{
		{name: "Defaults", page: 0, limit: 0, total: 25, wantPage: 1, wantLimit: 10, wantOffset: 0, wantPages: 3},
		{name: "SecondPage", page: 2, limit: 5, total: 11, wantPage: 2, wantLimit: 5, wantOffset: 5, wantPages: 3},
		{name: "ClampedLimit", page: 1, limit: 1000, total: 150, wantPage: 1, wantLimit: 100, wantOffset: 0, wantPages: 2},
		{name: "BeyondLastPage", page: 9, limit: 10, total: 3, wantPage: 9, wantLimit: 10, wantOffset: 80, wantPages: 1},
		{name: "Empty", page: 1, limit: 10, total: 0, wantPage: 1, wantLimit: 10, wantOffset: 0, wantPages: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			q := models.ListQuery{Offset: tt.wantOffset, Limit: tt.wantLimit, Search: "ali"}
			var users []models.User
			if tt.wantPage <= tt.wantPages {
				users = []models.User{{ID: "u1", PasswordHash: "hash"}}
			}
			f.repo.On("List", mock.Anything, q).Return(users, tt.total, nil).Once()

			page, err := f.svc.GetUsersPaginated(ctx, tt.page, tt.limit, "ali")
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, page.Page)
			assert.Equal(t, tt.wantLimit, page.Limit)
			assert.Equal(t, tt.total, page.Total)
			assert.Equal(t, tt.wantPages, page.TotalPages)
			assert.Len(t, page.Data, len(users))
			assert.NotNil(t, page.Data)
			f.repo.AssertExpectations(t)
		})
	}
}
