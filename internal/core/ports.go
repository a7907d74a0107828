package core

import (
	"account-service/internal/models"
	"context"
	"io"
	"time"
)

// UserRepository defines direct database operations.
// Lookups that find nothing return repository.ErrNotFound; unique-index
// violations return *repository.DuplicateKeyError.
type UserRepository interface {
	// Auth & Basic
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// User Management
	Update(ctx context.Context, id string, update models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q models.ListQuery) ([]models.User, int64, error)

	// Password reset
	SetResetToken(ctx context.Context, id, tokenDigest string, expiry time.Time) error
	GetByResetToken(ctx context.Context, tokenDigest string) (*models.User, error)
	// ResetPassword sets the hash and clears both reset fields in one write,
	// only if the stored digest still matches.
	ResetPassword(ctx context.Context, id, tokenDigest, passwordHash string) error

	Ping(ctx context.Context) error
}

// PasswordHasher abstracts the one-way credential hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenIssuer signs bearer tokens carrying the user's identity claims.
type TokenIssuer interface {
	Issue(user *models.User) (token string, expiresAt time.Time, err error)
}

// Notifier delivers account mail out of band.
type Notifier interface {
	SendPasswordReset(ctx context.Context, to, token string) error
	SendWelcome(ctx context.Context, to, name string) error
}

// ImageStore persists uploaded profile images and returns their public path.
type ImageStore interface {
	Upload(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error)
}

// UserService defines the business logic.
type UserService interface {
	// Auth
	Register(ctx context.Context, in models.NewUserInput) (*models.PublicUser, error)
	CreateUser(ctx context.Context, in models.NewUserInput) (*models.PublicUser, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error

	// User Management
	GetUserByID(ctx context.Context, id string) (*models.PublicUser, error)
	UpdateUser(ctx context.Context, id string, in models.UpdateInput) (*models.PublicUser, error)
	DeleteUser(ctx context.Context, id string) error
	GetUsersPaginated(ctx context.Context, page, limit int, search string) (*models.PaginatedUsers, error)
}
