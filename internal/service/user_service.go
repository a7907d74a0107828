package service

import (
	"account-service/internal/apperror"
	"account-service/internal/core"
	"account-service/internal/models"
	"account-service/internal/repository"
	"account-service/internal/telemetry"
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100

	DefaultResetTokenTTL = time.Hour
)

const (
	errEmailInUse    = "Email already in use"
	errUsernameInUse = "Username already in use"
	errUserNotFound  = "User not found"
)

// Options tunes the service. Zero values fall back to defaults.
type Options struct {
	ResetTokenTTL time.Duration
}

type UserService struct {
	repo     core.UserRepository
	hasher   core.PasswordHasher
	tokens   core.TokenIssuer
	notifier core.Notifier
	logger   zerolog.Logger
	tracer   trace.Tracer

	resetTTL time.Duration
	now      func() time.Time
}

func NewUserService(
	repo core.UserRepository,
	hasher core.PasswordHasher,
	tokens core.TokenIssuer,
	notifier core.Notifier,
	logger zerolog.Logger,
	opts Options,
) *UserService {
	ttl := opts.ResetTokenTTL
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	return &UserService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger.With().Str("component", "user_service").Logger(),
		tracer:   otel.Tracer("account-service/service"),
		resetTTL: ttl,
		now:      time.Now,
	}
}

var _ core.UserService = (*UserService)(nil)

// --- Auth Methods ---

// Register creates a self-service account and queues a welcome mail.
// The role is forced to user regardless of input.
func (s *UserService) Register(ctx context.Context, in models.NewUserInput) (*models.PublicUser, error) {
	in.Role = models.RoleUser
	user, err := s.CreateUser(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := s.notifier.SendWelcome(ctx, user.Email, user.DisplayName()); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to queue welcome mail")
	}
	return user, nil
}

// CreateUser enforces email then username uniqueness, hashes the password and
// persists the record. A racing duplicate caught by the store's unique index
// is reported the same way as the pre-check.
func (s *UserService) CreateUser(ctx context.Context, in models.NewUserInput) (*models.PublicUser, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.CreateUser")
	defer span.End()

	if err := s.ensureAvailable(ctx, in.Email, in.Username); err != nil {
		return nil, spanErr(span, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, spanErr(span, apperror.Internal(err))
	}

	role := in.Role
	if !role.Valid() {
		role = models.RoleUser
	}
	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Image:        in.Image,
		Role:         role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, spanErr(span, storeErr(err))
	}

	span.SetAttributes(attribute.String("user.id", user.ID), attribute.String("user.role", string(role)))
	public := user.Redact()
	return &public, nil
}

func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Login")
	defer span.End()

	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			telemetry.AuthAttempts.WithLabelValues("login", "unknown_email").Inc()
			return nil, spanErr(span, apperror.NotFound(errUserNotFound))
		}
		return nil, spanErr(span, apperror.Internal(err))
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		telemetry.AuthAttempts.WithLabelValues("login", "invalid_credentials").Inc()
		return nil, spanErr(span, apperror.Unauthorized("Invalid credentials"))
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, spanErr(span, apperror.Internal(err))
	}
	telemetry.AuthAttempts.WithLabelValues("login", "success").Inc()

	return &models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		User:      user.Redact(),
	}, nil
}

// --- User Management Methods ---

func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.PublicUser, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	public := user.Redact()
	return &public, nil
}

// UpdateUser applies a partial update. Only supplied fields are written.
func (s *UserService) UpdateUser(ctx context.Context, id string, in models.UpdateInput) (*models.PublicUser, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.UpdateUser", trace.WithAttributes(attribute.String("user.id", id)))
	defer span.End()

	update := models.UserUpdate{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Username:  in.Username,
		Image:     in.Image,
		Role:      in.Role,
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, spanErr(span, apperror.Internal(err))
		}
		update.PasswordHash = &hash
	}

	user, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return nil, spanErr(span, storeErr(err))
	}
	public := user.Redact()
	return &public, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeErr(err)
	}
	return nil
}

// GetUsersPaginated returns one page of users, newest first. Invalid page and
// limit values fall back to defaults; limit is capped.
func (s *UserService) GetUsersPaginated(ctx context.Context, page, limit int, search string) (*models.PaginatedUsers, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.GetUsersPaginated")
	defer span.End()

	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	users, total, err := s.repo.List(ctx, models.ListQuery{
		Offset: (page - 1) * limit,
		Limit:  limit,
		Search: search,
	})
	if err != nil {
		return nil, spanErr(span, apperror.Internal(err))
	}

	data := make([]models.PublicUser, 0, len(users))
	for i := range users {
		data = append(data, users[i].Redact())
	}

	span.SetAttributes(attribute.Int64("users.total", total), attribute.Int("users.page", page))
	return &models.PaginatedUsers{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

// --- helpers ---

func (s *UserService) ensureAvailable(ctx context.Context, email, username string) error {
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return apperror.Conflict(errEmailInUse)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return apperror.Internal(err)
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return apperror.Conflict(errUsernameInUse)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return apperror.Internal(err)
	}
	return nil
}

// storeErr maps repository failures onto the public error taxonomy.
func storeErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound(errUserNotFound)
	}
	if dup, ok := repository.AsDuplicateKey(err); ok {
		if dup.Field == "username" {
			return apperror.Conflict(errUsernameInUse)
		}
		return apperror.Conflict(errEmailInUse)
	}
	return apperror.Internal(err)
}

func spanErr(span trace.Span, err error) error {
	if apperror.Is(err, apperror.KindInternal) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
