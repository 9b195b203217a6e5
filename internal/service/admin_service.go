package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ganatech/academy/internal/models"
	"github.com/ganatech/academy/internal/repository"
)

type AdminService struct {
	admins      repository.AdminRepository
	tokens      *JWTService
	logger      *logrus.Logger
	compareHash func(hash, password []byte) error
}

func NewAdminService(admins repository.AdminRepository, tokens *JWTService, logger *logrus.Logger) *AdminService {
	return &AdminService{
		admins:      admins,
		tokens:      tokens,
		logger:      logger,
		compareHash: bcrypt.CompareHashAndPassword,
	}
}

var errInvalidCredentials = newError(CodeUnauthenticated, "Invalid credentials", nil)

// unknownAdminHash is compared against when the username does not exist, so an
// unknown username costs the same bcrypt work as a wrong password.
var unknownAdminHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("unknown-admin"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return hash
})

func (s *AdminService) Login(ctx context.Context, username, password string) (*models.Admin, *models.SessionToken, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, nil, newError(CodeValidation, "Username and password are required", nil)
	}

	admin, err := s.admins.FindByUsername(ctx, username)
	if err != nil {
		s.logger.WithError(err).Error("Failed to look up admin")
		return nil, nil, upstream("Login failed", err)
	}
	if admin == nil {
		_ = s.compareHash(unknownAdminHash(), []byte(password))
		s.logger.WithField("username", username).Warn("Admin login with unknown username")
		return nil, nil, errInvalidCredentials
	}
	if err := s.compareHash([]byte(admin.PasswordHash), []byte(password)); err != nil {
		s.logger.WithField("username", username).Warn("Admin login with wrong password")
		return nil, nil, errInvalidCredentials
	}

	token, err := s.tokens.IssueAdminToken(admin)
	if err != nil {
		return nil, nil, upstream("Login failed", err)
	}

	s.logger.WithField("username", username).Info("Admin logged in")
	return admin, token, nil
}

// Authenticate resolves a bearer token to a still-existing admin.
func (s *AdminService) Authenticate(ctx context.Context, token string) (*models.Admin, error) {
	if token == "" {
		return nil, newError(CodeUnauthenticated, "Not authorized, no token", nil)
	}
	claims, err := s.tokens.VerifyToken(token)
	if err != nil {
		return nil, newError(CodeUnauthenticated, "Not authorized, token failed", err)
	}
	if claims.Role != RoleAdmin {
		return nil, newError(CodeUnauthenticated, "Not authorized as admin", nil)
	}

	admin, err := s.admins.FindByID(ctx, claims.Subject)
	if err != nil {
		s.logger.WithError(err).Error("Failed to look up admin")
		return nil, upstream("Failed to authorize", err)
	}
	if admin == nil {
		return nil, newError(CodeUnauthenticated, "Not authorized, admin not found", nil)
	}
	return admin, nil
}

// EnsureAdmin creates the bootstrap administrator if no admin has that username.
func (s *AdminService) EnsureAdmin(ctx context.Context, username, password string) error {
	existing, err := s.admins.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	err = s.admins.Create(ctx, &models.Admin{Username: username, PasswordHash: string(hash)})
	if errors.Is(err, repository.ErrDuplicateUsername) {
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.WithField("username", username).Info("Bootstrap admin created")
	return nil
}
