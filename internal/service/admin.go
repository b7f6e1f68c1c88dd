package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pazzo-admin/internal/model"
	"pazzo-admin/internal/repository"
	"pazzo-admin/pkg/apierror"
)

// AdminService authenticates administrators against the twin store.
type AdminService struct {
	repo   repository.AdminRepository
	tokens *TokenService
	log    *zap.Logger
}

// NewAdminService creates an admin service.
func NewAdminService(repo repository.AdminRepository, tokens *TokenService, log *zap.Logger) *AdminService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminService{repo: repo, tokens: tokens, log: log}
}

// EnsureAdmin creates the account if it does not exist yet. An existing
// password is left alone.
func (s *AdminService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	_, err := s.repo.GetAdmin(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if err := s.setPassword(ctx, email, password); err != nil {
		return err
	}
	s.log.Info("admin account seeded", zap.String("email", email))
	return nil
}

// Login verifies credentials and issues a session token.
func (s *AdminService) Login(ctx context.Context, email, password string) (string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", apierror.BadRequest("Email and password are required")
	}

	admin, err := s.repo.GetAdmin(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", apierror.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword(admin.PasswordHash, []byte(password)); err != nil {
		s.log.Info("login rejected", zap.String("email", email))
		return "", apierror.Unauthorized("Invalid credentials")
	}

	return s.tokens.GenerateToken(ctx, email)
}

// Logout revokes token.
func (s *AdminService) Logout(ctx context.Context, token string) error {
	return s.tokens.RevokeToken(ctx, token)
}

// ResetPassword replaces the password of an existing admin.
func (s *AdminService) ResetPassword(ctx context.Context, email, newPassword string) error {
	email = normalizeEmail(email)
	if email == "" || newPassword == "" {
		return apierror.BadRequest("Email and new password are required")
	}
	if _, err := s.repo.GetAdmin(ctx, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apierror.NotFound("Admin not found")
		}
		return err
	}
	if err := s.setPassword(ctx, email, newPassword); err != nil {
		return err
	}
	s.log.Info("password reset", zap.String("email", email))
	return nil
}

func (s *AdminService) setPassword(ctx context.Context, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.repo.UpsertAdmin(ctx, &model.Admin{
		Email:        email,
		PasswordHash: hash,
		UpdatedAt:    time.Now().UTC(),
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
