package service

import (
	"account-service/internal/apperror"
	"account-service/internal/repository"
	"account-service/internal/telemetry"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

const resetTokenBytes = 32

const errInvalidResetToken = "Invalid or expired token"

// RequestPasswordReset issues a fresh reset token when the email belongs to
// an account. Unknown emails are a silent no-op so callers cannot probe for
// registered addresses.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	ctx, span := s.tracer.Start(ctx, "UserService.RequestPasswordReset")
	defer span.End()

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			telemetry.AuthAttempts.WithLabelValues("forgot_password", "unknown_email").Inc()
			return nil
		}
		return spanErr(span, apperror.Internal(err))
	}

	token, digest, err := newResetToken()
	if err != nil {
		return spanErr(span, apperror.Internal(err))
	}

	expiry := s.now().Add(s.resetTTL)
	if err := s.repo.SetResetToken(ctx, user.ID, digest, expiry); err != nil {
		return spanErr(span, storeErr(err))
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, token); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to send password reset email")
		return spanErr(span, apperror.InternalMessage("Failed to send password reset email", err))
	}

	telemetry.AuthAttempts.WithLabelValues("forgot_password", "sent").Inc()
	return nil
}

// ResetPassword consumes a reset token. The password change and the token
// removal happen in one conditional write keyed by the token digest, so a
// token can be consumed at most once.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	ctx, span := s.tracer.Start(ctx, "UserService.ResetPassword")
	defer span.End()

	digest := hashResetToken(token)
	user, err := s.repo.GetByResetToken(ctx, digest)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			telemetry.AuthAttempts.WithLabelValues("reset_password", "invalid_token").Inc()
			return apperror.Validation(errInvalidResetToken)
		}
		return spanErr(span, apperror.Internal(err))
	}

	if user.ResetPasswordExpiry == nil || !user.ResetPasswordExpiry.After(s.now()) {
		telemetry.AuthAttempts.WithLabelValues("reset_password", "expired_token").Inc()
		return apperror.Validation(errInvalidResetToken)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return spanErr(span, apperror.Internal(err))
	}

	if err := s.repo.ResetPassword(ctx, user.ID, digest, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Consumed by a concurrent request between lookup and write.
			return apperror.Validation(errInvalidResetToken)
		}
		return spanErr(span, apperror.Internal(err))
	}

	telemetry.AuthAttempts.WithLabelValues("reset_password", "success").Inc()
	return nil
}

// newResetToken returns the token mailed to the user and the digest persisted
// in its place.
func newResetToken() (token, digest string, err error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate reset token: %w", err)
	}
	token = hex.EncodeToString(b)
	return token, hashResetToken(token), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
