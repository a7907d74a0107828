package database

import (
	"context"
	"errors"
	"time"

	"account-service/internal/config"
	"account-service/internal/models"
	"account-service/internal/repository"
)

// SeedDefaultAdmin creates an admin account for development environments.
func SeedDefaultAdmin(ctx context.Context, app *config.Application) {
	cfg := app.Config
	if !cfg.IsDevelopment() || cfg.DefaultAdminEmail == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := app.Store.GetByEmail(ctx, cfg.DefaultAdminEmail)
	if err == nil {
		app.Logger.Info().Str("email", cfg.DefaultAdminEmail).Msg("Default admin already exists")
		return
	}
	if !errors.Is(err, repository.ErrNotFound) {
		app.Logger.Error().Err(err).Msg("Failed to check for default admin")
		return
	}

	user, err := app.Users.CreateUser(ctx, models.NewUserInput{
		Email:    cfg.DefaultAdminEmail,
		Username: cfg.DefaultAdminUsername,
		Password: cfg.DefaultAdminPassword,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		app.Logger.Error().Err(err).Msg("Failed to create default admin")
		return
	}

	app.Logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("Default admin created successfully")
}
