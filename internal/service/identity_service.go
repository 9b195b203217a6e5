package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ganatech/academy/internal/models"
	"github.com/ganatech/academy/internal/repository"
)

// Administrative access to the identities of this service's kind.

func (s *VerificationService) ListIdentities(ctx context.Context) ([]models.Identity, error) {
	identities, err := s.identities.FindAll(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("kind", s.kind).Error("Failed to list identities")
		return nil, upstream("Failed to list "+s.kind.Collection(), err)
	}
	if identities == nil {
		identities = []models.Identity{}
	}
	return identities, nil
}

func (s *VerificationService) GetIdentity(ctx context.Context, id string) (*models.Identity, error) {
	identity, err := s.identities.FindByID(ctx, id)
	if err != nil {
		s.logger.WithError(err).WithField("id", id).Error("Failed to load identity")
		return nil, upstream("Failed to load "+string(s.kind), err)
	}
	if identity == nil {
		return nil, s.notFound()
	}
	return identity, nil
}

func (s *VerificationService) UpdateIdentity(ctx context.Context, id string, update models.ProfileUpdate) (*models.Identity, error) {
	if update.IsEmpty() {
		return nil, newError(CodeValidation, "No fields to update", nil)
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, newError(CodeValidation, "Name cannot be empty", nil)
	}

	identity, err := s.identities.UpdateByID(ctx, id, update)
	if err != nil {
		s.logger.WithError(err).WithField("id", id).Error("Failed to update identity")
		return nil, upstream("Failed to update "+string(s.kind), err)
	}
	if identity == nil {
		return nil, s.notFound()
	}
	return identity, nil
}

func (s *VerificationService) DeleteIdentity(ctx context.Context, id string) error {
	err := s.identities.DeleteByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return s.notFound()
	}
	if err != nil {
		s.logger.WithError(err).WithField("id", id).Error("Failed to delete identity")
		return upstream("Failed to delete "+string(s.kind), err)
	}
	return nil
}

func (s *VerificationService) notFound() *Error {
	return newError(CodeNotFound, s.kind.Title()+" not found", nil)
}
