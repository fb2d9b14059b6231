package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"intihelp/internal/logging"
	"intihelp/internal/repositories"
)

const passwordResetTTL = time.Hour

type PasswordResetService interface {
	RequestReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type passwordResetService struct {
	userRepo repositories.UserRepository
	repo     repositories.PasswordResetRepository
	emails   EmailService
	auth     AuthService
}

func NewPasswordResetService(userRepo repositories.UserRepository, repo repositories.PasswordResetRepository, emails EmailService, auth AuthService) PasswordResetService {
	return &passwordResetService{
		userRepo: userRepo,
		repo:     repo,
		emails:   emails,
		auth:     auth,
	}
}

// RequestReset never reveals whether the email belongs to an account.
func (s *passwordResetService) RequestReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return invalid("email is required")
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		logging.Info("[password-reset] unknown email", "email", email)
		return nil
	}
	if err != nil {
		return err
	}

	token, err := s.auth.NewOpaqueToken()
	if err != nil {
		return err
	}
	if _, err := s.repo.Create(ctx, user.ID, token, time.Now().Add(passwordResetTTL)); err != nil {
		return err
	}
	if err := s.emails.SendPasswordResetEmail(user.Email, token); err != nil {
		logging.Warn("[password-reset] failed to send email", "user_id", user.ID, "error", err)
	}
	return nil
}

func (s *passwordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	newPassword = strings.TrimSpace(newPassword)
	if token == "" || newPassword == "" {
		return invalid("token and password are required")
	}
	if len(newPassword) < minPasswordLen {
		return invalid("password must be at least %d characters", minPasswordLen)
	}

	hash, err := s.auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	pr, err := s.repo.Consume(ctx, token)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, pr.UserID, hash); err != nil {
		return err
	}
	return s.userRepo.ClearRefresh(ctx, pr.UserID)
}
